// Package detector wraps the object detector that turns an image into raw
// sign hits.
//
// Detectors are expensive to build, so callers obtain one through a Provider,
// which constructs it once on first use and remembers a construction failure
// until Reinitialize is called. Detectors that are not safe for concurrent
// use are wrapped by Serialize so calls run one at a time on a single worker.
package detector

import (
	"context"
	"image"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// Detector finds signs in an image.
//
// Errors wrap detection.ErrDetectorUnavailable when the detector cannot run at
// all and detection.ErrInferenceFailure when a single call failed.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]detection.Raw, error)
	Close() error
}

// ConcurrencySafe is implemented by detectors that document safe concurrent
// Detect calls.
type ConcurrencySafe interface {
	ConcurrentSafe() bool
}

// IsConcurrentSafe reports whether d may be called from several goroutines.
func IsConcurrentSafe(d Detector) bool {
	cs, ok := d.(ConcurrencySafe)
	return ok && cs.ConcurrentSafe()
}

// Func adapts a function to the Detector interface. It is not assumed to be
// safe for concurrent use.
type Func func(ctx context.Context, img image.Image) ([]detection.Raw, error)

// Detect calls f.
func (f Func) Detect(ctx context.Context, img image.Image) ([]detection.Raw, error) {
	return f(ctx, img)
}

// Close does nothing.
func (f Func) Close() error { return nil }
