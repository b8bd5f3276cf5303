package encoder

import (
	"testing"

	"github.com/okieraised/go-retinanet-coder/config"
	"github.com/okieraised/go-retinanet-coder/metrics"
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const numTestClasses = 21

func zeroClsPreds(n, numClasses int) [][]float32 {
	cls := make([][]float32, n)
	for i := range cls {
		cls[i] = make([]float32, numClasses)
	}
	return cls
}

func TestDecode_SingleBoxInFirstCell(t *testing.T) {
	e := newTestEncoder(t, nil)
	size := processing.SquareInputSize(600)

	boxes := []processing.Box{{-12, -12, 20, 20}}
	locTargets, _, err := e.Encode(boxes, []int{2}, size)
	require.NoError(t, err)

	clsPreds := zeroClsPreds(len(locTargets), numTestClasses)
	clsPreds[3][3] = 1

	decoded, labels, err := e.Decode(locTargets, clsPreds, size)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, []int{3}, labels)

	// The box sticks out of the image, so it comes back clamped.
	assert.InDeltaSlice(t, []float32{0, 0, 20, 20}, decoded[0][:], 1e-3)
}

func TestDecode_RoundTripInterior(t *testing.T) {
	e := newTestEncoder(t, nil)
	size := processing.SquareInputSize(600)

	// Centered on row 10, column 10 of the stride 8 level.
	gt := processing.Box{68, 68, 100, 100}
	locTargets, clsTargets, err := e.Encode([]processing.Box{gt}, []int{7}, size)
	require.NoError(t, err)

	idx := (10*75+10)*9 + 3
	require.Equal(t, 8, clsTargets[idx])
	assert.InDeltaSlice(t, []float32{0, 0, 0, 0}, locTargets[idx][:], 1e-5)

	clsPreds := zeroClsPreds(len(locTargets), numTestClasses)
	clsPreds[idx][8] = 0.9

	detections, err := e.DecodeDetections(locTargets, clsPreds, size)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 8, detections[0].Label)
	assert.Equal(t, float32(0.9), detections[0].Score)
	assert.InDeltaSlice(t, gt[:], detections[0].Box[:], 1e-3)
}

func TestDecode_ForegroundAnchorsCollapseToOneDetection(t *testing.T) {
	e := newTestEncoder(t, smallAnchorParams)
	size := processing.NewInputSize(128, 160)

	gt := processing.Box{60, 30, 120, 90}
	locTargets, clsTargets, err := e.Encode([]processing.Box{gt}, []int{4}, size)
	require.NoError(t, err)

	clsPreds := zeroClsPreds(len(locTargets), 6)
	var best float32
	for i, c := range clsTargets {
		if c > 0 {
			score := 0.5 + float32(i%7)/20
			clsPreds[i][c] = score
			if score > best {
				best = score
			}
		}
	}
	require.Greater(t, best, float32(0))

	detections, err := e.DecodeDetections(locTargets, clsPreds, size)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 5, detections[0].Label)
	assert.Equal(t, best, detections[0].Score)
	assert.InDeltaSlice(t, gt[:], detections[0].Box[:], 1e-2)
}

func TestDecode_BelowThresholdIsEmpty(t *testing.T) {
	e := newTestEncoder(t, smallAnchorParams)
	size := processing.SquareInputSize(64)

	n, err := e.AnchorBoxes(size)
	require.NoError(t, err)

	locPreds := make([][4]float32, len(n))
	clsPreds := zeroClsPreds(len(n), 3)
	for i := range clsPreds {
		clsPreds[i][1] = 0.05
		clsPreds[i][2] = 0.01
	}

	boxes, labels, err := e.Decode(locPreds, clsPreds, size)
	require.NoError(t, err)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
	assert.Empty(t, labels)
}

func TestDecode_BackgroundArgmaxIsDropped(t *testing.T) {
	e := newTestEncoder(t, smallAnchorParams)
	size := processing.SquareInputSize(64)

	anchors, err := e.AnchorBoxes(size)
	require.NoError(t, err)

	locPreds := make([][4]float32, len(anchors))
	clsPreds := zeroClsPreds(len(anchors), 3)
	for i := range clsPreds {
		clsPreds[i][0] = 0.9
		clsPreds[i][1] = 0.8
	}

	boxes, _, err := e.Decode(locPreds, clsPreds, size)
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestDecode_BoxesStayInsideImage(t *testing.T) {
	e := newTestEncoder(t, config.NewAnchorParams([]float32{32 * 32}, []float32{1}, []float32{1}, 3))
	size := processing.NewInputSize(64, 96)

	anchors, err := e.AnchorBoxes(size)
	require.NoError(t, err)
	require.Len(t, anchors, 8*12)

	locPreds := make([][4]float32, len(anchors))
	clsPreds := zeroClsPreds(len(anchors), 2)
	for i := range anchors {
		sign := float32(1)
		if i%2 == 1 {
			sign = -1
		}
		locPreds[i] = [4]float32{sign * 300, -sign * 300, 50, 40}
		clsPreds[i][1] = 0.1 + float32(i)/1000
	}

	boxes, labels, err := e.Decode(locPreds, clsPreds, size)
	require.NoError(t, err)
	require.NotEmpty(t, boxes)
	require.Len(t, labels, len(boxes))

	for _, b := range boxes {
		assert.True(t, b[0] >= 0 && b[0] <= 96, "x1 %v", b[0])
		assert.True(t, b[2] >= 0 && b[2] <= 96, "x2 %v", b[2])
		assert.True(t, b[1] >= 0 && b[1] <= 64, "y1 %v", b[1])
		assert.True(t, b[3] >= 0 && b[3] <= 64, "y2 %v", b[3])
	}
}

func TestDecode_DoesNotModifyInputs(t *testing.T) {
	e := newTestEncoder(t, smallAnchorParams)
	size := processing.SquareInputSize(64)

	locTargets, clsTargets, err := e.Encode([]processing.Box{{20, 20, 52, 52}}, []int{1}, size)
	require.NoError(t, err)

	clsPreds := zeroClsPreds(len(locTargets), 3)
	for i, c := range clsTargets {
		if c > 0 {
			clsPreds[i][c] = 0.7
		}
	}

	locCopy := append([][4]float32(nil), locTargets...)
	clsCopy := make([][]float32, len(clsPreds))
	for i := range clsPreds {
		clsCopy[i] = append([]float32(nil), clsPreds[i]...)
	}

	_, _, err = e.Decode(locTargets, clsPreds, size)
	require.NoError(t, err)
	assert.Equal(t, locCopy, locTargets)
	assert.Equal(t, clsCopy, clsPreds)
}

func TestDecode_InvalidInput(t *testing.T) {
	e := newTestEncoder(t, smallAnchorParams)
	size := processing.SquareInputSize(64)

	anchors, err := e.AnchorBoxes(size)
	require.NoError(t, err)
	n := len(anchors)

	tests := []struct {
		name     string
		locPreds [][4]float32
		clsPreds [][]float32
		size     processing.InputSize
	}{
		{"short loc preds", make([][4]float32, n-1), zeroClsPreds(n, 3), size},
		{"short cls preds", make([][4]float32, n), zeroClsPreds(n+1, 3), size},
		{"no classes", make([][4]float32, n), zeroClsPreds(n, 0), size},
		{"bad size", make([][4]float32, n), zeroClsPreds(n, 3), processing.NewInputSize(64, -1)},
	}

	ragged := zeroClsPreds(n, 3)
	ragged[n-1] = ragged[n-1][:2]
	tests = append(tests, struct {
		name     string
		locPreds [][4]float32
		clsPreds [][]float32
		size     processing.InputSize
	}{"ragged cls preds", make([][4]float32, n), ragged, size})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Decode(tt.locPreds, tt.clsPreds, tt.size)
			assert.True(t, errors.Is(err, processing.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestDecode_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	e := newTestEncoder(t, smallAnchorParams, WithMetrics(m))
	size := processing.SquareInputSize(64)

	locTargets, clsTargets, err := e.Encode([]processing.Box{{20, 20, 52, 52}}, []int{1}, size)
	require.NoError(t, err)

	clsPreds := zeroClsPreds(len(locTargets), 3)
	for i, c := range clsTargets {
		if c > 0 {
			clsPreds[i][c] = 0.7
		}
	}

	_, _, err = e.Decode(locTargets, clsPreds, size)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecodeTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EncodeTotal))
}
