//go:build !cgo

package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// ONNX is unavailable in builds without cgo.
type ONNX struct{}

// NewONNX always fails: onnxruntime needs cgo.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	return nil, fmt.Errorf("%w: onnxruntime requires a cgo build", detection.ErrDetectorUnavailable)
}

// Detect always fails.
func (o *ONNX) Detect(context.Context, image.Image) ([]detection.Raw, error) {
	return nil, fmt.Errorf("%w: onnxruntime requires a cgo build", detection.ErrDetectorUnavailable)
}

// Close does nothing.
func (o *ONNX) Close() error { return nil }
