package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
)

// EncodedImage is a PNG ready to embed in a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropRegion extracts the box b from img, grown by pad pixels on every side
// and clipped to the image, then scaled by scale (1 keeps the size).
func CropRegion(img image.Image, b detection.Bounds, pad int, scale float64) (*image.NRGBA, error) {
	ib := img.Bounds()
	region := detection.Bounds{
		X1: b.X1 - pad,
		Y1: b.Y1 - pad,
		X2: b.X2 + pad,
		Y2: b.Y2 + pad,
	}.Clamp(ib.Dx(), ib.Dy())
	if region.Empty() {
		return nil, fmt.Errorf("crop region %s outside image bounds %dx%d", b, ib.Dx(), ib.Dy())
	}

	rect := image.Rect(region.X1, region.Y1, region.X2, region.Y2).Add(ib.Min)
	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := max(int(float64(cropped.Bounds().Dx())*scale), 1)
		newHeight := max(int(float64(cropped.Bounds().Dy())*scale), 1)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped, nil
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
