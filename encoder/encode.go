package encoder

import (
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Encode matches corner form ground-truth boxes to anchors and returns one
// regression target and one classification target per anchor, in lattice
// order. Classification targets are 0 for background, -1 for ignored anchors
// and 1+label for foreground.
func (e *DataEncoder) Encode(boxes []processing.Box, labels []int, size processing.InputSize) ([][4]float32, []int, error) {
	locTargets, clsTargets, _, err := e.EncodeWithStats(boxes, labels, size)
	return locTargets, clsTargets, err
}

func (e *DataEncoder) EncodeWithStats(boxes []processing.Box, labels []int, size processing.InputSize) ([][4]float32, []int, EncodeStats, error) {
	var stats EncodeStats

	if len(boxes) != len(labels) {
		return nil, nil, stats, errors.Wrapf(processing.ErrInvalidInput, "got %d boxes and %d labels", len(boxes), len(labels))
	}
	if err := size.Validate(); err != nil {
		return nil, nil, stats, err
	}
	for i, label := range labels {
		if label < 0 {
			return nil, nil, stats, errors.Wrapf(processing.ErrInvalidInput, "label %d is negative: %d", i, label)
		}
	}

	anchors, err := e.AnchorBoxes(size)
	if err != nil {
		return nil, nil, stats, err
	}

	locTargets := make([][4]float32, len(anchors))
	clsTargets := make([]int, len(anchors))

	if len(boxes) == 0 {
		stats.Background = len(anchors)
		e.record(stats)
		return locTargets, clsTargets, stats, nil
	}

	gtBoxes := processing.ChangeBoxOrder(boxes, processing.XYWH)
	ious := processing.PairwiseIoU(anchors, gtBoxes, processing.XYWH)

	for i, anchor := range anchors {
		row := ious.RawRowView(i)
		matchIdx := floats.MaxIdx(row)
		maxIoU := row[matchIdx]

		locTargets[i] = processing.BBoxTransform(anchor, gtBoxes[matchIdx], e.params.ScaleFactors)

		switch {
		case maxIoU < e.params.BackgroundIoU:
			clsTargets[i] = 0
			stats.Background++
		case maxIoU < e.params.ForegroundIoU:
			clsTargets[i] = -1
			stats.Ignored++
		default:
			clsTargets[i] = 1 + labels[matchIdx]
			stats.Foreground++
		}
	}

	e.record(stats)
	return locTargets, clsTargets, stats, nil
}

func (e *DataEncoder) record(stats EncodeStats) {
	e.logger.Debugf("encoded targets: %d foreground, %d ignored, %d background",
		stats.Foreground, stats.Ignored, stats.Background)
	e.metrics.ObserveEncode(stats.Foreground, stats.Background, stats.Ignored)
}
