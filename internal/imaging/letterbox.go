package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// PadColor fills the letterbox border, matching the YOLO training pipeline.
var PadColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// Transform maps coordinates in a letterboxed image back to the source image.
type Transform struct {
	Scale      float64
	PadX, PadY int
	SrcWidth   int
	SrcHeight  int
}

// Letterbox fits img into a size×size square keeping its aspect ratio and
// pads the remainder with PadColor. The image is centred.
func Letterbox(img image.Image, size int) (*image.NRGBA, Transform) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := Transform{SrcWidth: w, SrcHeight: h}
	canvas := imaging.New(size, size, PadColor)
	if w == 0 || h == 0 || size <= 0 {
		t.Scale = 1
		return canvas, t
	}

	t.Scale = math.Min(float64(size)/float64(w), float64(size)/float64(h))
	nw := max(int(math.Round(float64(w)*t.Scale)), 1)
	nh := max(int(math.Round(float64(h)*t.Scale)), 1)
	t.PadX = (size - nw) / 2
	t.PadY = (size - nh) / 2

	resized := imaging.Resize(img, nw, nh, imaging.Linear)
	return imaging.Paste(canvas, resized, image.Pt(t.PadX, t.PadY)), t
}

// ToSource converts a centre-format box in letterbox pixels to source-image
// bounds, clamped to the source rectangle.
func (t Transform) ToSource(cx, cy, w, h float64) detection.Bounds {
	x1 := (cx - w/2 - float64(t.PadX)) / t.Scale
	y1 := (cy - h/2 - float64(t.PadY)) / t.Scale
	x2 := (cx + w/2 - float64(t.PadX)) / t.Scale
	y2 := (cy + h/2 - float64(t.PadY)) / t.Scale

	return detection.Bounds{
		X1: int(math.Floor(x1)),
		Y1: int(math.Floor(y1)),
		X2: int(math.Ceil(x2)),
		Y2: int(math.Ceil(y2)),
	}.Clamp(t.SrcWidth, t.SrcHeight)
}

// CHW writes img into a planar float32 tensor (R plane, G plane, B plane)
// with values scaled to [0, 1]. dst must hold 3×width×height values.
func CHW(img *image.NRGBA, dst []float32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			p := row[x*4:]
			dst[i] = float32(p[0]) / 255
			dst[plane+i] = float32(p[1]) / 255
			dst[2*plane+i] = float32(p[2]) / 255
		}
	}
}
