package detection

import (
	"fmt"
	"math"
	"slices"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Raw is one hit exactly as the detector reported it.
type Raw struct {
	// ClassID is the detector's class index for the hit.
	ClassID int `json:"class_id"`

	// Confidence is the detector score, expected in [0, 1].
	Confidence float64 `json:"confidence"`

	// Box is the hit location. Nil when the detector does not localise hits.
	Box *Bounds `json:"box,omitempty"`
}

// Record is a labelled detection that survived threshold filtering.
//
// Records are values; the Box pointer is never shared with the Raw it came from,
// so a Record cannot be modified through the detector's output.
type Record struct {
	// Label is the human-readable class name from the ClassIndex.
	Label string `json:"label"`

	// Confidence is the detector score in [0, 1].
	Confidence float64 `json:"confidence"`

	// Box is the optional location of the sign in the source image.
	Box *Bounds `json:"box,omitempty"`

	// Text is sign text read inside Box when OCR is enabled.
	Text string `json:"text,omitempty"`
}

// WithText returns a copy of r carrying the given sign text.
func (r Record) WithText(text string) Record {
	r.Box = cloneBounds(r.Box)
	r.Text = text
	return r
}

// ValidConfidence reports whether c is a usable confidence value.
func ValidConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 1
}

// ClassIndex maps detector class ids to labels.
type ClassIndex interface {
	// Lookup returns the label for id and whether the id is known.
	Lookup(id int) (string, bool)

	// Labels returns every label in class-id order.
	Labels() []string
}

// SliceIndex is a ClassIndex backed by a slice: class id i maps to element i.
type SliceIndex []string

// Lookup implements ClassIndex.
func (s SliceIndex) Lookup(id int) (string, bool) {
	if id < 0 || id >= len(s) {
		return "", false
	}
	return s[id], true
}

// Labels implements ClassIndex.
func (s SliceIndex) Labels() []string {
	return slices.Clone([]string(s))
}

// MapIndex is a ClassIndex for sparse class ids.
type MapIndex map[int]string

// Lookup implements ClassIndex.
func (m MapIndex) Lookup(id int) (string, bool) {
	label, ok := m[id]
	return label, ok
}

// Labels implements ClassIndex. Labels are ordered by class id.
func (m MapIndex) Labels() []string {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = m[id]
	}
	return labels
}

// TrafficSigns is the class list of the bundled traffic-sign model.
var TrafficSigns = SliceIndex{
	"Green Light",
	"Red Light",
	"Speed Limit 10",
	"Speed Limit 100",
	"Speed Limit 110",
	"Speed Limit 120",
	"Speed Limit 20",
	"Speed Limit 30",
	"Speed Limit 40",
	"Speed Limit 50",
	"Speed Limit 60",
	"Speed Limit 70",
	"Speed Limit 80",
	"Speed Limit 90",
	"Stop",
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

func cloneBounds(b *Bounds) *Bounds {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
