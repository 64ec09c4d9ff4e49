// Package detection turns raw object-detector output into ordered detection records.
//
// A detector reports each hit as a class index, a confidence score and an optional
// bounding box. This package maps those hits onto human-readable labels through a
// ClassIndex, drops hits below a confidence threshold, and hands back immutable
// Record values in the order the detector emitted them.
//
// # Ingestion
//
// Ingest is a pure transformation:
//
//  1. Every raw hit is validated: its class id must be known to the ClassIndex and
//     its confidence must lie in [0, 1].
//  2. Hits whose confidence is strictly below the threshold are dropped.
//  3. Survivors keep their relative order. Record order is display order.
//
// A malformed hit fails the whole call with ErrInvalidInput; nothing is partially
// returned.
//
// # Coordinate System
//
// Bounds use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - (X1, Y1) inclusive, (X2, Y2) exclusive
//
// # Confidence Scores
//
// Confidence is the detector's self-reported certainty normalised to [0, 1]:
//   - 1.0 = certain
//   - 0.5 = moderate confidence
//   - Lower values indicate uncertain detections
//
// # Errors
//
// The package owns the sentinel errors shared by the whole pipeline:
// ErrInvalidInput, ErrDetectorUnavailable and ErrInferenceFailure. Callers wrap
// them with fmt.Errorf("...: %w", err) and test with errors.Is.
package detection
