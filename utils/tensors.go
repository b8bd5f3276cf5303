package utils

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// ArgSortDescending returns the indices of data ordered by descending value.
// Equal values keep their original relative order.
func ArgSortDescending(data []float32) []int {
	indices := make([]int, len(data))
	for i := range indices {
		indices[i] = i
	}

	sort.SliceStable(indices, func(i, j int) bool {
		return data[indices[i]] > data[indices[j]]
	})

	return indices
}

// ArgMax returns the index and value of the first maximum of data. NaN values
// are skipped; it returns (-1, NaN) when no value qualifies.
func ArgMax(data []float32) (int, float32) {
	idx := -1
	best := math32.NaN()
	for i, v := range data {
		if math32.IsNaN(v) {
			continue
		}
		if idx < 0 || v > best {
			idx, best = i, v
		}
	}
	return idx, best
}

func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// BytesToFloat32s decodes little-endian raw tensor contents.
func BytesToFloat32s(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("raw contents length %d is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}

func materialize(t *tensor.Dense) *tensor.Dense {
	if t.IsMaterializable() {
		return t.Materialize().(*tensor.Dense)
	}
	return t
}

// rowShape accepts [N, C] or [1, N, C] and returns (N, C).
func rowShape(t *tensor.Dense) (int, int, error) {
	shape := t.Shape()
	switch {
	case len(shape) == 2:
		return shape[0], shape[1], nil
	case len(shape) == 3 && shape[0] == 1:
		return shape[1], shape[2], nil
	default:
		return 0, 0, fmt.Errorf("expected a [N, C] or [1, N, C] tensor, got shape %v", shape)
	}
}

// DenseToRows converts a float32 [N, C] or [1, N, C] tensor into N rows.
func DenseToRows(t *tensor.Dense) ([][]float32, error) {
	if t.Dtype() != tensor.Float32 {
		return nil, fmt.Errorf("expected float32 tensor, got %v", t.Dtype())
	}
	n, c, err := rowShape(t)
	if err != nil {
		return nil, err
	}

	data := materialize(t).Float32s()
	rows := make([][]float32, n)
	for i := range n {
		rows[i] = append([]float32(nil), data[i*c:(i+1)*c]...)
	}
	return rows, nil
}

// DenseToQuads converts a float32 [N, 4] or [1, N, 4] tensor into N 4-vectors.
func DenseToQuads(t *tensor.Dense) ([][4]float32, error) {
	if t.Dtype() != tensor.Float32 {
		return nil, fmt.Errorf("expected float32 tensor, got %v", t.Dtype())
	}
	n, c, err := rowShape(t)
	if err != nil {
		return nil, err
	}
	if c != 4 {
		return nil, fmt.Errorf("expected 4 columns, got %d", c)
	}

	data := materialize(t).Float32s()
	quads := make([][4]float32, n)
	for i := range quads {
		copy(quads[i][:], data[4*i:4*i+4])
	}
	return quads, nil
}

// DenseToInts converts a 1D integer tensor into a slice of int.
func DenseToInts(t *tensor.Dense) ([]int, error) {
	if len(t.Shape()) != 1 {
		return nil, fmt.Errorf("expected a 1D tensor, got shape %v", t.Shape())
	}

	t = materialize(t)
	switch t.Dtype() {
	case tensor.Int:
		return append([]int(nil), t.Ints()...), nil
	case tensor.Int64:
		out := make([]int, 0, t.Shape()[0])
		for _, v := range t.Int64s() {
			out = append(out, int(v))
		}
		return out, nil
	case tensor.Int32:
		out := make([]int, 0, t.Shape()[0])
		for _, v := range t.Int32s() {
			out = append(out, int(v))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an integer tensor, got %v", t.Dtype())
	}
}

func QuadsToDense(quads [][4]float32) *tensor.Dense {
	backing := make([]float32, 0, 4*len(quads))
	for _, q := range quads {
		backing = append(backing, q[:]...)
	}
	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(len(quads), 4),
		tensor.WithBacking(backing),
	)
}

func IntsToDense(values []int) *tensor.Dense {
	return tensor.New(
		tensor.Of(tensor.Int),
		tensor.WithShape(len(values)),
		tensor.WithBacking(append([]int(nil), values...)),
	)
}
