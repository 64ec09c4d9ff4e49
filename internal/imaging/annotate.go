package imaging

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// AnnotateOptions controls box rendering.
type AnnotateOptions struct {
	// LineWidth is the box outline thickness in pixels. Default 2.
	LineWidth int

	// FontScale multiplies the 3x5 glyph size. Default 2.
	FontScale int

	// Colors overrides the palette for specific labels, as "#RRGGBB" or
	// "#RRGGBBAA". Keys match labels case-insensitively.
	Colors map[string]string

	// ShowConfidence appends the confidence to each label.
	ShowConfidence bool
}

// Validate reports the first colour that does not parse.
func (o AnnotateOptions) Validate() error {
	for label, hex := range o.Colors {
		if _, err := parseHexColor(hex); err != nil {
			return fmt.Errorf("color %q for %q: %w", hex, label, err)
		}
	}
	return nil
}

// palette returns the parsed colour overrides keyed by lower-cased label.
// Unparseable entries are dropped.
func (o AnnotateOptions) palette() map[string]color.RGBA {
	p := make(map[string]color.RGBA, len(o.Colors))
	for label, hex := range o.Colors {
		if c, err := parseHexColor(hex); err == nil {
			p[strings.ToLower(label)] = c
		}
	}
	return p
}

// Annotate draws every record that has a box onto a copy of img.
// Records without a box are skipped.
func Annotate(img image.Image, records []detection.Record, opts AnnotateOptions) *image.NRGBA {
	if opts.LineWidth <= 0 {
		opts.LineWidth = 2
	}
	if opts.FontScale <= 0 {
		opts.FontScale = 2
	}
	palette := opts.palette()

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	for _, rec := range records {
		if rec.Box == nil {
			continue
		}
		c, ok := palette[strings.ToLower(rec.Label)]
		if !ok {
			c = LabelColor(rec.Label)
		}

		box := rec.Box.Clamp(out.Bounds().Dx(), out.Bounds().Dy())
		drawRect(out, box, opts.LineWidth, c)

		text := strings.ToUpper(rec.Label)
		if opts.ShowConfidence {
			text = fmt.Sprintf("%s %.2f", text, rec.Confidence)
		}
		labelY := box.Y1 - (glyphHeight+2)*opts.FontScale - 1
		if labelY < 0 {
			labelY = box.Y1 + opts.LineWidth + 1
		}
		drawLabel(out, box.X1, labelY, text, color.RGBA{255, 255, 255, 255}, c, opts.FontScale)
	}
	return out
}

// LabelColor returns a stable, saturated colour for label.
func LabelColor(label string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(label))
	hue := float64(h.Sum32()%360) + 0.5

	r, g, b := colorful.Hcl(hue, 0.7, 0.55).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func drawRect(img *image.NRGBA, b detection.Bounds, width int, c color.RGBA) {
	fill := func(x1, y1, x2, y2 int) {
		r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
		draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Over)
	}
	fill(b.X1, b.Y1, b.X2, b.Y1+width)
	fill(b.X1, b.Y2-width, b.X2, b.Y2)
	fill(b.X1, b.Y1, b.X1+width, b.Y2)
	fill(b.X2-width, b.Y1, b.X2, b.Y2)
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}
