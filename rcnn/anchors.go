package rcnn

import "github.com/okieraised/go-retinanet-coder/processing"

// FeatureMapSize returns the (height, width) of the feature map produced by a
// given downsampling factor, rounding up so the whole input is covered.
func FeatureMapSize(size processing.InputSize, downsample int) (int, int) {
	return (size.Height + downsample - 1) / downsample, (size.Width + downsample - 1) / downsample
}

// Anchors places every (w, h) pair at the center of every cell of a
// height x width feature map. Output is row-major over cells, then in
// anchorWH order within a cell, in center form.
func Anchors(height, width int, strideY, strideX float32, anchorWH [][2]float32) []processing.Box {
	a := len(anchorWH)
	allAnchors := make([]processing.Box, 0, height*width*a)

	for _, p := range processing.GridPoints(width, height) {
		cx := (float32(p[0]) + 0.5) * strideX
		cy := (float32(p[1]) + 0.5) * strideY
		for k := range a {
			allAnchors = append(allAnchors, processing.Box{cx, cy, anchorWH[k][0], anchorWH[k][1]})
		}
	}
	return allAnchors
}

// AnchorBoxes builds the flattened anchor lattice for an input size: level
// order, then row-major cell order, then the per-cell (w, h) order.
func AnchorBoxes(cfg *processing.AnchorConfig, size processing.InputSize) ([]processing.Box, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}

	total, err := NumAnchors(cfg, size)
	if err != nil {
		return nil, err
	}

	boxes := make([]processing.Box, 0, total)
	for level := range cfg.NumLevels() {
		fmH, fmW := FeatureMapSize(size, cfg.DownsampleFactor(level))
		strideY := float32(size.Height / fmH)
		strideX := float32(size.Width / fmW)
		boxes = append(boxes, Anchors(fmH, fmW, strideY, strideX, cfg.AnchorWH(level))...)
	}
	return boxes, nil
}

// NumAnchors is the length of the lattice AnchorBoxes would build.
func NumAnchors(cfg *processing.AnchorConfig, size processing.InputSize) (int, error) {
	if err := size.Validate(); err != nil {
		return 0, err
	}

	total := 0
	for level := range cfg.NumLevels() {
		fmH, fmW := FeatureMapSize(size, cfg.DownsampleFactor(level))
		total += fmH * fmW * cfg.AnchorsPerCell()
	}
	return total, nil
}
