package encoder

import (
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/okieraised/go-retinanet-coder/utils"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// EncodeDense is Encode over tensors: boxes [G, 4] float32 and labels [G] of
// an integer dtype. It returns loc targets [N, 4] float32 and cls targets [N] int.
func (e *DataEncoder) EncodeDense(boxes, labels *tensor.Dense, size processing.InputSize) (*tensor.Dense, *tensor.Dense, error) {
	quads, err := utils.DenseToQuads(boxes)
	if err != nil {
		return nil, nil, errors.Wrapf(processing.ErrInvalidInput, "boxes: %v", err)
	}
	labelValues, err := utils.DenseToInts(labels)
	if err != nil {
		return nil, nil, errors.Wrapf(processing.ErrInvalidInput, "labels: %v", err)
	}

	gtBoxes := make([]processing.Box, len(quads))
	for i, q := range quads {
		gtBoxes[i] = processing.Box(q)
	}

	locTargets, clsTargets, err := e.Encode(gtBoxes, labelValues, size)
	if err != nil {
		return nil, nil, err
	}
	return utils.QuadsToDense(locTargets), utils.IntsToDense(clsTargets), nil
}

// DecodeDense is Decode over tensors: loc preds [N, 4] and cls preds [N, C],
// both float32, optionally with a leading batch dimension of 1.
func (e *DataEncoder) DecodeDense(locPreds, clsPreds *tensor.Dense, size processing.InputSize) (*tensor.Dense, *tensor.Dense, error) {
	locs, err := utils.DenseToQuads(locPreds)
	if err != nil {
		return nil, nil, errors.Wrapf(processing.ErrInvalidInput, "loc preds: %v", err)
	}
	cls, err := utils.DenseToRows(clsPreds)
	if err != nil {
		return nil, nil, errors.Wrapf(processing.ErrInvalidInput, "cls preds: %v", err)
	}

	boxes, labels, err := e.Decode(locs, cls, size)
	if err != nil {
		return nil, nil, err
	}

	quads := make([][4]float32, len(boxes))
	for i, b := range boxes {
		quads[i] = b
	}
	return utils.QuadsToDense(quads), utils.IntsToDense(labels), nil
}
