package processing

import (
	"math"

	"github.com/okieraised/go-retinanet-coder/utils"
	"github.com/pkg/errors"
)

type NMSMode int

const (
	// NMSModeUnion measures overlap as intersection over union.
	NMSModeUnion NMSMode = iota
	// NMSModeMin measures overlap as intersection over the smaller area.
	NMSModeMin
)

func overlap(a, b [4]float64, mode NMSMode) float64 {
	if mode == NMSModeMin {
		inter := intersection64(a, b)
		smaller := math.Min(area64(a), area64(b))
		if smaller <= 0 {
			return 0
		}
		return inter / smaller
	}
	return iou64(a, b)
}

// NMS runs greedy non-maximum suppression over corner form boxes and returns
// the kept indices, highest score first. A box is dropped when its overlap
// with an already kept box is >= threshold. Equal scores keep input order.
func NMS(boxes []Box, scores []float32, threshold float64, mode NMSMode) ([]int, error) {
	if len(boxes) != len(scores) {
		return nil, errors.Wrapf(ErrInvalidInput, "got %d boxes and %d scores", len(boxes), len(scores))
	}

	corners := make([][4]float64, len(boxes))
	for i, b := range boxes {
		corners[i] = corners64(b, XYXY)
	}

	order := utils.ArgSortDescending(scores)
	suppressed := make([]bool, len(boxes))
	keep := make([]int, 0, len(boxes))

	for pos, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)

		for _, j := range order[pos+1:] {
			if suppressed[j] {
				continue
			}
			if overlap(corners[i], corners[j], mode) >= threshold {
				suppressed[j] = true
			}
		}
	}

	return keep, nil
}
