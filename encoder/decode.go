package encoder

import (
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/okieraised/go-retinanet-coder/utils"
	"github.com/pkg/errors"
)

// Decode turns per-anchor regression and classification outputs into corner
// form boxes and labels, highest score first.
func (e *DataEncoder) Decode(locPreds [][4]float32, clsPreds [][]float32, size processing.InputSize) ([]processing.Box, []int, error) {
	detections, err := e.DecodeDetections(locPreds, clsPreds, size)
	if err != nil {
		return nil, nil, err
	}

	boxes := make([]processing.Box, 0, len(detections))
	labels := make([]int, 0, len(detections))
	for _, det := range detections {
		boxes = append(boxes, det.Box)
		labels = append(labels, det.Label)
	}
	return boxes, labels, nil
}

// DecodeDetections is Decode with the score of every kept box. The inputs
// are not modified.
func (e *DataEncoder) DecodeDetections(locPreds [][4]float32, clsPreds [][]float32, size processing.InputSize) ([]Detection, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}

	anchors, err := e.AnchorBoxes(size)
	if err != nil {
		return nil, err
	}
	if len(locPreds) != len(anchors) || len(clsPreds) != len(anchors) {
		return nil, errors.Wrapf(processing.ErrInvalidInput,
			"expected %d anchors, got %d loc preds and %d cls preds", len(anchors), len(locPreds), len(clsPreds))
	}
	if err := checkClassRows(clsPreds); err != nil {
		return nil, err
	}

	boxes := make([]processing.Box, 0)
	scores := make([]float32, 0)
	labels := make([]int, 0)

	for i, anchor := range anchors {
		label, score := utils.ArgMax(clsPreds[i])
		if !(score > e.params.ClsThreshold) || label <= 0 {
			continue
		}
		box := processing.BBoxTransformInv(anchor, locPreds[i], e.params.ScaleFactors)
		boxes = append(boxes, processing.ToCorner(box))
		scores = append(scores, score)
		labels = append(labels, label)
	}
	processing.ClipBoxes(boxes, size)

	keep, err := processing.NMS(boxes, scores, e.params.NMSThreshold, processing.NMSModeUnion)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(keep))
	for _, i := range keep {
		detections = append(detections, Detection{Box: boxes[i], Label: labels[i], Score: scores[i]})
	}

	e.logger.Debugf("decoded %d detections from %d candidates", len(detections), len(boxes))
	e.metrics.ObserveDecode(len(boxes), len(detections))
	return detections, nil
}

func checkClassRows(clsPreds [][]float32) error {
	if len(clsPreds) == 0 {
		return nil
	}
	numClasses := len(clsPreds[0])
	if numClasses == 0 {
		return errors.Wrap(processing.ErrInvalidInput, "cls preds have no classes")
	}
	for i, row := range clsPreds {
		if len(row) != numClasses {
			return errors.Wrapf(processing.ErrInvalidInput, "cls preds row %d has %d classes, expected %d", i, len(row), numClasses)
		}
	}
	return nil
}
