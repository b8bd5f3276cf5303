package processing

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

func corners64(b Box, order BoxOrder) [4]float64 {
	if order == XYWH {
		cx, cy, w, h := float64(b[0]), float64(b[1]), float64(b[2]), float64(b[3])
		return [4]float64{cx - w/2, cy - h/2, cx + w/2, cy + h/2}
	}
	return [4]float64{float64(b[0]), float64(b[1]), float64(b[2]), float64(b[3])}
}

func area64(c [4]float64) float64 {
	return (c[2] - c[0]) * (c[3] - c[1])
}

func intersection64(a, b [4]float64) float64 {
	w := math.Max(math.Min(a[2], b[2])-math.Max(a[0], b[0]), 0)
	h := math.Max(math.Min(a[3], b[3])-math.Max(a[1], b[1]), 0)
	return w * h
}

func iou64(a, b [4]float64) float64 {
	inter := intersection64(a, b)
	union := area64(a) + area64(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// IoU computes the intersection over union of two boxes given in the same order.
func IoU(a, b Box, order BoxOrder) float64 {
	return iou64(corners64(a, order), corners64(b, order))
}

// PairwiseIoU returns a len(a) x len(b) matrix whose (i, j) entry is the IoU
// of a[i] and b[j]. Center form input is widened to float64 before the corner
// conversion. An empty side yields an empty matrix.
func PairwiseIoU(a, b []Box, order BoxOrder) *mat.Dense {
	if len(a) == 0 || len(b) == 0 {
		return &mat.Dense{}
	}

	cb := make([][4]float64, len(b))
	for j, box := range b {
		cb[j] = corners64(box, order)
	}

	ious := mat.NewDense(len(a), len(b), nil)
	for i, box := range a {
		ca := corners64(box, order)
		row := ious.RawRowView(i)
		for j := range cb {
			row[j] = iou64(ca, cb[j])
		}
	}
	return ious
}
