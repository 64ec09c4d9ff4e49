// Package override implements the Automatic/Manual switch that decides where
// the final report comes from.
package override

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/meaning"
	"github.com/ironsheep/traffic-sign-mcp/internal/report"
)

// DefaultFixedConfidence is the confidence shown on manual reports when the
// operator does not supply one.
const DefaultFixedConfidence = 0.965

// ErrValidation marks a rejected override configuration.
var ErrValidation = errors.New("invalid override")

// ValidationError describes why SetOverride rejected its arguments.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid override %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid override %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// State is a snapshot of the controller configuration.
type State struct {
	Enabled         bool    `json:"enabled"`
	SelectedLabel   string  `json:"selected_label,omitempty"`
	FixedConfidence float64 `json:"fixed_confidence"`
}

// Source runs the detector for the current request.
type Source func(ctx context.Context) ([]detection.Raw, error)

// Controller holds the override state. It is safe for concurrent use.
type Controller struct {
	mu                sync.RWMutex
	catalog           *Catalog
	defaultConfidence float64
	state             State
	logger            *zap.Logger
}

// New creates a controller in Automatic mode.
//
// defaultConfidence is used for manual reports when SetOverride is not given
// a confidence. A nil logger discards log output.
func New(catalog *Catalog, defaultConfidence float64, logger *zap.Logger) (*Controller, error) {
	if !detection.ValidConfidence(defaultConfidence) {
		return nil, &ValidationError{
			Field:  "confidence",
			Value:  fmt.Sprint(defaultConfidence),
			Reason: "must be within [0, 1]",
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		catalog:           catalog,
		defaultConfidence: defaultConfidence,
		state:             State{FixedConfidence: defaultConfidence},
		logger:            logger.Named("override"),
	}, nil
}

// SetOverride is the single transition function.
//
// With enabled=false the controller returns to Automatic and forgets any
// selection; label and fixedConfidence are ignored. With enabled=true the
// label must be in the catalog and fixedConfidence, when given, must lie in
// [0, 1]. A rejected call returns a *ValidationError and leaves the state
// unchanged.
func (c *Controller) SetOverride(enabled bool, label string, fixedConfidence *float64) error {
	if !enabled {
		c.mu.Lock()
		c.state = State{FixedConfidence: c.defaultConfidence}
		c.mu.Unlock()
		c.logger.Info("override disabled")
		return nil
	}

	if label == "" {
		return &ValidationError{Field: "label", Reason: "required when override is enabled"}
	}
	canonical, ok := c.catalog.Lookup(label)
	if !ok {
		return &ValidationError{Field: "label", Value: label, Reason: "not in label catalog"}
	}

	confidence := c.defaultConfidence
	if fixedConfidence != nil {
		confidence = *fixedConfidence
		if !detection.ValidConfidence(confidence) {
			return &ValidationError{
				Field:  "confidence",
				Value:  fmt.Sprint(confidence),
				Reason: "must be within [0, 1]",
			}
		}
	}

	c.mu.Lock()
	c.state = State{Enabled: true, SelectedLabel: canonical, FixedConfidence: confidence}
	c.mu.Unlock()

	c.logger.Info("override enabled",
		zap.String("label", canonical),
		zap.Float64("confidence", confidence))
	return nil
}

// Mode returns the current mode.
func (c *Controller) Mode() report.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.Enabled {
		return report.ModeManual
	}
	return report.ModeAutomatic
}

// State returns a snapshot of the current configuration.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Catalog returns the label catalog the controller validates against.
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

// ProduceReport builds the final report for one request.
//
// In Manual mode it returns the singleton report for the selected label and
// never calls src. In Automatic mode it runs src, ingests the hits and
// aggregates them. Every failure along the way, including a panic in src,
// becomes a StatusError report; ProduceReport itself never fails.
func (c *Controller) ProduceReport(ctx context.Context, src Source, index detection.ClassIndex, threshold float64, resolver meaning.Resolver) *report.Report {
	state := c.State()
	if state.Enabled {
		r := report.Manual(state.SelectedLabel, state.FixedConfidence, resolver)
		c.logger.Debug("manual report", zap.String("id", r.ID), zap.String("label", state.SelectedLabel))
		return r
	}

	records, err := c.runPipeline(ctx, src, index, threshold)
	if err != nil {
		r := report.Failed(err)
		c.logger.Warn("automatic report failed", zap.String("id", r.ID), zap.Error(err))
		return r
	}

	r, err := report.Aggregate(records, resolver)
	if err != nil {
		r = report.Failed(err)
		c.logger.Warn("aggregation failed", zap.String("id", r.ID), zap.Error(err))
		return r
	}

	c.logger.Debug("automatic report",
		zap.String("id", r.ID),
		zap.Stringer("status", r.Status),
		zap.Int("records", len(r.Records)))
	return r
}

func (c *Controller) runPipeline(ctx context.Context, src Source, index detection.ClassIndex, threshold float64) (records []detection.Record, err error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no detection source", detection.ErrDetectorUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrInferenceFailure, err)
	}

	defer func() {
		if p := recover(); p != nil {
			records = nil
			err = fmt.Errorf("%w: detector panicked: %v", detection.ErrInferenceFailure, p)
		}
	}()

	raws, err := src(ctx)
	if err != nil {
		return nil, err
	}
	return detection.Ingest(raws, index, threshold)
}
