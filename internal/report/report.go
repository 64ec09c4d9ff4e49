// Package report aggregates detection records and their meanings into the
// per-image safety report.
package report

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/meaning"
)

// Mode says which path produced a report.
type Mode int

const (
	// ModeAutomatic reports come from the detector pipeline.
	ModeAutomatic Mode = iota
	// ModeManual reports are synthesised from an operator-selected label.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Status is the outcome of producing a report.
type Status int

const (
	// StatusOK means at least one sign was reported.
	StatusOK Status = iota
	// StatusEmpty means the pipeline ran but no sign survived filtering.
	StatusEmpty
	// StatusError means something went wrong; Records is empty.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Report is the structured result for one image or override toggle.
// A Report is not modified after construction.
type Report struct {
	// ID identifies the report in logs and tool responses.
	ID string `json:"id"`

	// Records are the detected signs in display order.
	Records []detection.Record `json:"records"`

	// Meanings maps each distinct label in Records to its explanation.
	Meanings map[string]string `json:"meanings"`

	Mode   Mode   `json:"mode"`
	Status Status `json:"status"`

	// Error describes the failure when Status is StatusError.
	Error string `json:"error,omitempty"`
}

// Aggregate combines records and their meanings into a report.
//
// Each distinct label is resolved once. An empty record list yields a
// StatusEmpty report; otherwise the report is StatusOK. A record with a
// confidence outside [0, 1] fails the call with detection.ErrInvalidInput
// before anything is resolved.
func Aggregate(records []detection.Record, resolver meaning.Resolver) (*Report, error) {
	for i, r := range records {
		if !detection.ValidConfidence(r.Confidence) {
			return nil, fmt.Errorf("%w: record %d (%q) confidence %v outside [0,1]",
				detection.ErrInvalidInput, i, r.Label, r.Confidence)
		}
	}
	if len(records) == 0 {
		return newReport(nil, nil, ModeAutomatic, StatusEmpty, ""), nil
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: nil resolver", detection.ErrInvalidInput)
	}

	meanings := make(map[string]string, len(records))
	for _, r := range records {
		if _, ok := meanings[r.Label]; ok {
			continue
		}
		meanings[r.Label] = resolver.Resolve(r.Label)
	}
	return newReport(slices.Clone(records), meanings, ModeAutomatic, StatusOK, ""), nil
}

// Manual builds the singleton report for an operator-asserted label.
func Manual(label string, confidence float64, resolver meaning.Resolver) *Report {
	explanation := meaning.Resolve(label, nil)
	if resolver != nil {
		explanation = resolver.Resolve(label)
	}
	return newReport(
		[]detection.Record{{Label: label, Confidence: confidence}},
		map[string]string{label: explanation},
		ModeManual, StatusOK, "",
	)
}

// Failed builds an Automatic error report carrying err's message.
func Failed(err error) *Report {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return newReport(nil, nil, ModeAutomatic, StatusError, msg)
}

func newReport(records []detection.Record, meanings map[string]string, mode Mode, status Status, errMsg string) *Report {
	if records == nil {
		records = []detection.Record{}
	}
	if meanings == nil {
		meanings = map[string]string{}
	}
	return &Report{
		ID:       uuid.NewString(),
		Records:  records,
		Meanings: meanings,
		Mode:     mode,
		Status:   status,
		Error:    errMsg,
	}
}

// Labels returns the distinct labels in record order.
func (r *Report) Labels() []string {
	seen := make(map[string]bool, len(r.Records))
	labels := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		if seen[rec.Label] {
			continue
		}
		seen[rec.Label] = true
		labels = append(labels, rec.Label)
	}
	return labels
}

// Clone returns a deep copy of r with the same ID.
func (r *Report) Clone() *Report {
	c := *r
	c.Records = make([]detection.Record, len(r.Records))
	for i, rec := range r.Records {
		c.Records[i] = rec.WithText(rec.Text)
	}
	c.Meanings = maps.Clone(r.Meanings)
	return &c
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
