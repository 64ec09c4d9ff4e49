package detector

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/imaging"
)

// YOLOConfig tunes decoding of YOLOv8-style output.
type YOLOConfig struct {
	// NumClasses is the number of class scores per anchor.
	NumClasses int

	// MinScore drops candidates scoring below it before NMS.
	MinScore float64

	// IoUThreshold suppresses same-class boxes overlapping a stronger box by
	// at least this much.
	IoUThreshold float64
}

// anchorCount is the number of predictions a YOLOv8 head emits for a square
// input of the given size (strides 8, 16 and 32).
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}

// decodeYOLO parses a [4+nc, anchors] output plane laid out row by row: the
// first four rows hold cx, cy, w, h in letterbox pixels and the remaining rows
// hold per-class scores. The best class per anchor becomes a candidate.
// Results are in descending confidence after per-class NMS.
func decodeYOLO(output []float32, anchors int, cfg YOLOConfig, tr imaging.Transform) ([]detection.Raw, error) {
	rows := 4 + cfg.NumClasses
	if anchors <= 0 || cfg.NumClasses <= 0 || len(output) < rows*anchors {
		return nil, fmt.Errorf("%w: output has %d values, want %d×%d",
			detection.ErrInferenceFailure, len(output), rows, anchors)
	}

	var cands []detection.Raw
	for a := 0; a < anchors; a++ {
		best, classID := float32(0), -1
		for c := 0; c < cfg.NumClasses; c++ {
			if s := output[(4+c)*anchors+a]; s > best {
				best, classID = s, c
			}
		}
		if classID < 0 || float64(best) < cfg.MinScore {
			continue
		}

		box := tr.ToSource(
			float64(output[a]),
			float64(output[anchors+a]),
			float64(output[2*anchors+a]),
			float64(output[3*anchors+a]),
		)
		if box.Empty() {
			continue
		}
		cands = append(cands, detection.Raw{
			ClassID:    classID,
			Confidence: min(max(float64(best), 0), 1),
			Box:        &box,
		})
	}
	return nonMaxSuppression(cands, cfg.IoUThreshold), nil
}

// nonMaxSuppression keeps the strongest box of each overlapping same-class
// group. Boxes of different classes never suppress each other.
func nonMaxSuppression(cands []detection.Raw, iouThreshold float64) []detection.Raw {
	slices.SortStableFunc(cands, func(a, b detection.Raw) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	kept := make([]detection.Raw, 0, len(cands))
	suppressed := make([]bool, len(cands))
	for i := range cands {
		if suppressed[i] {
			continue
		}
		kept = append(kept, cands[i])
		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] || cands[j].ClassID != cands[i].ClassID {
				continue
			}
			if cands[i].Box.IoU(*cands[j].Box) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
