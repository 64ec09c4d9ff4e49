package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"go.uber.org/zap"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/imaging"
)

// ErrUnavailable is returned when no OCR engine can run in this build.
var ErrUnavailable = errors.New("ocr unavailable")

// Engine recognises text in a PNG-encoded image.
type Engine interface {
	Recognize(ctx context.Context, pngData []byte) (string, error)
	Close() error
}

// Options configures the Reader and the Tesseract engine.
type Options struct {
	// Language is the Tesseract language code. Default "eng".
	Language string

	// TessdataPath overrides the Tesseract data directory.
	TessdataPath string

	// Whitelist limits recognised characters. Empty allows all.
	Whitelist string

	// Padding grows each box before cropping. Default 4 pixels.
	Padding int

	// MinHeight upscales crops shorter than this. Default 64 pixels.
	MinHeight int
}

func (o *Options) applyDefaults() {
	if o.Language == "" {
		o.Language = "eng"
	}
	if o.Padding <= 0 {
		o.Padding = 4
	}
	if o.MinHeight <= 0 {
		o.MinHeight = 64
	}
}

// Reader extracts sign text from detected regions.
type Reader struct {
	engine Engine
	opts   Options
	logger *zap.Logger
}

// NewReader wraps engine. A nil logger discards log output.
func NewReader(engine Engine, opts Options, logger *zap.Logger) *Reader {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{engine: engine, opts: opts, logger: logger.Named("ocr")}
}

// ReadRegion returns the cleaned text inside b.
func (r *Reader) ReadRegion(ctx context.Context, img image.Image, b detection.Bounds) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	scale := 1.0
	if h := b.Height() + 2*r.opts.Padding; h > 0 && h < r.opts.MinHeight {
		scale = float64(r.opts.MinHeight) / float64(h)
	}
	crop, err := imaging.CropRegion(img, b, r.opts.Padding, scale)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Preprocess(crop)); err != nil {
		return "", fmt.Errorf("failed to encode region: %w", err)
	}

	text, err := r.engine.Recognize(ctx, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return cleanText(text), nil
}

// Enrich returns a copy of records with Text filled in for every record that
// has a box. A region that cannot be read keeps an empty Text; the error is
// logged and the remaining records are still processed.
func (r *Reader) Enrich(ctx context.Context, img image.Image, records []detection.Record) []detection.Record {
	out := make([]detection.Record, len(records))
	for i, rec := range records {
		out[i] = rec.WithText(rec.Text)
		if rec.Box == nil || ctx.Err() != nil {
			continue
		}
		text, err := r.ReadRegion(ctx, img, *rec.Box)
		if err != nil {
			r.logger.Debug("region not readable",
				zap.String("label", rec.Label),
				zap.Stringer("box", rec.Box),
				zap.Error(err))
			continue
		}
		out[i] = rec.WithText(text)
	}
	return out
}

// Close releases the engine.
func (r *Reader) Close() error {
	return r.engine.Close()
}

// Preprocess prepares a sign crop for recognition.
func Preprocess(img image.Image) image.Image {
	gray := effect.Grayscale(img)
	contrasted := adjust.Contrast(gray, 0.5)
	return effect.Sharpen(contrasted)
}

// cleanText collapses whitespace and drops characters Tesseract commonly
// hallucinates around sign borders.
func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '|', '_', '~', '`':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
