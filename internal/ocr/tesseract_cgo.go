//go:build cgo && linux

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is an Engine backed by a single gosseract client. The client is
// not safe for concurrent use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a client configured from opts.
func NewTesseract(opts Options) (*Tesseract, error) {
	opts.applyDefaults()

	client := gosseract.NewClient()
	if opts.TessdataPath != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPath); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(opts.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &Tesseract{client: client}, nil
}

// Recognize runs OCR over a PNG image.
func (t *Tesseract) Recognize(ctx context.Context, pngData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	return t.client.Text()
}

// Version returns the linked Tesseract version.
func (t *Tesseract) Version() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Version()
}

// Close releases the client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
