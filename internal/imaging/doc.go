// Package imaging decodes, caches and prepares images for the sign detector,
// and renders detection results back onto them.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Regions use
// detection.Bounds: (X1,Y1) is inclusive, (X2,Y2) is exclusive.
//
// # Pipeline Helpers
//
//   - ImageCache: thread-safe path-keyed cache of decoded images
//   - Letterbox: scale-and-pad an image into the square detector input,
//     returning the Transform that maps model coordinates back
//   - CropRegion: extract a detected sign (with padding) for OCR
//   - Annotate: draw labelled boxes for each record
//   - EncodePNG: base64 PNG for MCP responses
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Every other function is
// stateless and returns new images; inputs are never modified.
package imaging
