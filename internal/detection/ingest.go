package detection

import "fmt"

// Ingest converts raw detector hits into records.
//
// Parameters:
//   - raws: Hits in detector emission order.
//   - index: Class id to label mapping. Must not be nil.
//   - threshold: Minimum confidence in [0, 1]. Hits with confidence < threshold
//     are dropped; a hit exactly at the threshold is kept.
//
// Returns:
//   - []Record: Surviving records in emission order. Never nil.
//   - error: Wraps ErrInvalidInput for an unknown class id, a confidence outside
//     [0, 1], or a threshold outside [0, 1].
//
// Every hit is validated before any filtering so a malformed hit below the
// threshold is still reported.
func Ingest(raws []Raw, index ClassIndex, threshold float64) ([]Record, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: nil class index", ErrInvalidInput)
	}
	if !ValidConfidence(threshold) {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidInput, threshold)
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		label, ok := index.Lookup(raw.ClassID)
		if !ok {
			return nil, fmt.Errorf("%w: detection %d has unknown class id %d", ErrInvalidInput, i, raw.ClassID)
		}
		if !ValidConfidence(raw.Confidence) {
			return nil, fmt.Errorf("%w: detection %d confidence %v outside [0,1]", ErrInvalidInput, i, raw.Confidence)
		}
		if raw.Confidence < threshold {
			continue
		}
		records = append(records, Record{
			Label:      label,
			Confidence: raw.Confidence,
			Box:        cloneBounds(raw.Box),
		})
	}
	return records, nil
}
