package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAnchorParams(t *testing.T) {
	assert.Len(t, DefaultAnchorParams.Areas, 5)
	assert.Equal(t, []float32{0.5, 1, 2}, DefaultAnchorParams.AspectRatios)
	assert.InDelta(t, math.Pow(2, 1.0/3), DefaultAnchorParams.ScaleRatios[1], 1e-6)
	assert.InDelta(t, math.Pow(2, 2.0/3), DefaultAnchorParams.ScaleRatios[2], 1e-6)
	assert.Equal(t, 3, DefaultAnchorParams.MinLevel)
}

func TestDefaultParams_IsACopy(t *testing.T) {
	params := DefaultParams()
	params.Anchor.Areas[0] = 1
	params.BoxCoder.ClsThreshold = 0.9
	params.Detection.ClassNames[0] = "plane"

	assert.Equal(t, float32(32*32), DefaultAnchorParams.Areas[0])
	assert.Equal(t, float32(0.05), DefaultBoxCoderParams.ClsThreshold)
	assert.Equal(t, "aeroplane", VOCClassNames[0])
}

func TestDefaultRetinaNetDetectionParams(t *testing.T) {
	assert.Len(t, DefaultRetinaNetDetectionParams.ClassNames, DefaultRetinaNetDetectionParams.NumClasses-1)
}

func TestParse_Overrides(t *testing.T) {
	doc := []byte(`
box_coder:
  cls_threshold: 0.3
  nms_threshold: 0.45
  scale_factors: [10, 10, 5, 5]
  foreground_iou: 0.5
  background_iou: 0.4
detection:
  model_name: retinanet_voc
  timeout: 5s
  image_size: [512, 512]
  num_classes: 21
`)
	params, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, float32(0.3), params.BoxCoder.ClsThreshold)
	assert.Equal(t, 0.45, params.BoxCoder.NMSThreshold)
	assert.Equal(t, "retinanet_voc", params.Detection.ModelName)
	assert.Equal(t, 5*time.Second, params.Detection.Timeout)
	assert.Equal(t, [2]int{512, 512}, params.Detection.ImageSize)
	// Untouched fields and sections keep their defaults.
	assert.Equal(t, "loc_preds", params.Detection.LocOutputName)
	assert.Equal(t, DefaultAnchorParams.Areas, params.Anchor.Areas)
}

func TestParse_NullSectionFallsBackToDefault(t *testing.T) {
	params, err := Parse([]byte("anchor: null\n"))
	require.NoError(t, err)
	require.NotNil(t, params.Anchor)
	assert.Equal(t, DefaultAnchorParams.ScaleRatios, params.Anchor.ScaleRatios)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("box_coder: [1, 2"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anchor:\n  areas: [1024, 4096]\n  aspect_ratios: [1]\n  scale_ratios: [1]\n  min_level: 3\n"), 0o600))

	params, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{1024, 4096}, params.Anchor.Areas)
	assert.Equal(t, []float32{1}, params.Anchor.AspectRatios)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
