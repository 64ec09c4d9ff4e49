//go:build !(cgo && linux)

package ocr

import (
	"context"
	"fmt"
)

// Tesseract is unavailable in this build.
type Tesseract struct{}

// NewTesseract always fails outside cgo Linux builds.
func NewTesseract(Options) (*Tesseract, error) {
	return nil, fmt.Errorf("%w: tesseract requires a cgo build on linux", ErrUnavailable)
}

// Recognize always fails.
func (t *Tesseract) Recognize(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}

// Version returns an empty string.
func (t *Tesseract) Version() string { return "" }

// Close does nothing.
func (t *Tesseract) Close() error { return nil }
