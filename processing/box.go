package processing

import (
	"fmt"

	"github.com/pkg/errors"
)

// Box holds four coordinates. Depending on its BoxOrder it is either corner
// form (xmin, ymin, xmax, ymax) or center form (cx, cy, w, h).
type Box [4]float32

type BoxOrder int

const (
	XYXY BoxOrder = iota
	XYWH
)

func (o BoxOrder) String() string {
	switch o {
	case XYXY:
		return "xyxy"
	case XYWH:
		return "xywh"
	default:
		return fmt.Sprintf("BoxOrder(%d)", int(o))
	}
}

// ToCenter converts a corner form box to center form.
func ToCenter(b Box) Box {
	return Box{
		(b[0] + b[2]) / 2,
		(b[1] + b[3]) / 2,
		b[2] - b[0],
		b[3] - b[1],
	}
}

// ToCorner converts a center form box to corner form.
func ToCorner(b Box) Box {
	return Box{
		b[0] - b[2]/2,
		b[1] - b[3]/2,
		b[0] + b[2]/2,
		b[1] + b[3]/2,
	}
}

// ChangeBoxOrder converts every box into the target order. The input is
// assumed to be in the other order. The result is a new slice in the same
// order as the input.
func ChangeBoxOrder(boxes []Box, target BoxOrder) []Box {
	convert := ToCenter
	if target == XYXY {
		convert = ToCorner
	}
	out := make([]Box, len(boxes))
	for i, b := range boxes {
		out[i] = convert(b)
	}
	return out
}

// InputSize is the model input resolution.
type InputSize struct {
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}

func NewInputSize(height, width int) InputSize {
	return InputSize{Height: height, Width: width}
}

func SquareInputSize(size int) InputSize {
	return InputSize{Height: size, Width: size}
}

func (s InputSize) Validate() error {
	if s.Height <= 0 || s.Width <= 0 {
		return errors.Wrapf(ErrInvalidInput, "input size must be positive, got %dx%d", s.Height, s.Width)
	}
	return nil
}

func (s InputSize) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// GridPoints returns every (col, row) coordinate of a width x height grid in
// row-major order.
func GridPoints(width, height int) [][2]int {
	points := make([][2]int, 0, width*height)
	for row := range height {
		for col := range width {
			points = append(points, [2]int{col, row})
		}
	}
	return points
}
