package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"slices"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// Static returns the same hits for every image. It replays recorded detector
// output and stands in for a real model in tests.
type Static struct {
	Raws []detection.Raw
	Err  error
}

// Detect returns a copy of s.Raws, or s.Err when set.
func (s *Static) Detect(ctx context.Context, _ image.Image) ([]detection.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrInferenceFailure, err)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(s.Raws), nil
}

// Close does nothing.
func (s *Static) Close() error { return nil }

// ConcurrentSafe reports true; Static holds no mutable state.
func (s *Static) ConcurrentSafe() bool { return true }

// LoadRaw reads recorded hits from JSON: either an array of
//
//	{"class_id": 3, "confidence": 0.87, "box": {"x1":..,"y1":..,"x2":..,"y2":..}}
//
// objects or an object with a "detections" field holding that array.
func LoadRaw(r io.Reader) ([]detection.Raw, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}

	var raws []detection.Raw
	if err := json.Unmarshal(data, &raws); err == nil {
		return raws, nil
	}

	var wrapped struct {
		Detections []detection.Raw `json:"detections"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse detections: %w", err)
	}
	if wrapped.Detections == nil {
		return nil, fmt.Errorf("failed to parse detections: no \"detections\" array")
	}
	return wrapped.Detections, nil
}
