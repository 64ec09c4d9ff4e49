// Package ocr reads the text printed on detected signs using Tesseract.
//
// The detector only knows its class list; a speed-limit sign outside that
// list still carries a legible number. When enabled, the Reader crops each
// detected box, cleans it up for recognition and attaches the text it finds
// to the record.
//
// # Prerequisites
//
// The Tesseract engine needs cgo on Linux and the system Tesseract library
// with language data:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - Set TESSDATA_PREFIX or the ocr.tessdata_path option when the data
//     lives outside the default location.
//
// Other builds get an engine that always reports ErrUnavailable.
//
// # Preprocessing
//
// Regions are converted to grayscale, contrast-stretched, sharpened and
// upscaled so that small sign numerals reach a size Tesseract handles well.
package ocr
