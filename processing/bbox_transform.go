package processing

import "github.com/chewxy/math32"

// BBoxTransform encodes a center form ground-truth box against a center form
// anchor as scaled (tx, ty, tw, th) offsets.
func BBoxTransform(anchor, gt Box, scaleFactors [4]float32) [4]float32 {
	return [4]float32{
		(gt[0] - anchor[0]) / anchor[2] * scaleFactors[0],
		(gt[1] - anchor[1]) / anchor[3] * scaleFactors[1],
		math32.Log(gt[2]/anchor[2]) * scaleFactors[2],
		math32.Log(gt[3]/anchor[3]) * scaleFactors[3],
	}
}

// BBoxTransformInv applies scaled offsets to a center form anchor and returns
// the predicted box in center form.
func BBoxTransformInv(anchor Box, deltas, scaleFactors [4]float32) Box {
	dx := deltas[0] / scaleFactors[0]
	dy := deltas[1] / scaleFactors[1]
	dw := deltas[2] / scaleFactors[2]
	dh := deltas[3] / scaleFactors[3]

	return Box{
		dx*anchor[2] + anchor[0],
		dy*anchor[3] + anchor[1],
		math32.Exp(dw) * anchor[2],
		math32.Exp(dh) * anchor[3],
	}
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ClipBoxes clamps corner form boxes in place to [0, width] x [0, height] and
// returns them. NaN coordinates are left untouched.
func ClipBoxes(boxes []Box, size InputSize) []Box {
	width := float32(size.Width)
	height := float32(size.Height)

	for i := range boxes {
		boxes[i][0] = clamp(boxes[i][0], 0, width)
		boxes[i][1] = clamp(boxes[i][1], 0, height)
		boxes[i][2] = clamp(boxes[i][2], 0, width)
		boxes[i][3] = clamp(boxes[i][3], 0, height)
	}
	return boxes
}
