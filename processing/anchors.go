package processing

import (
	"github.com/chewxy/math32"
	"github.com/okieraised/go-retinanet-coder/config"
	"github.com/pkg/errors"
)

const maxPyramidLevel = 30

// AnchorConfig is the immutable anchor definition shared by encoding and
// decoding. It owns copies of the areas, ratios and scales it was built from.
type AnchorConfig struct {
	areas        []float32
	aspectRatios []float32
	scaleRatios  []float32
	minLevel     int
	anchorWH     [][][2]float32
}

func NewAnchorConfig(params *config.AnchorParams) (*AnchorConfig, error) {
	if params == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil anchor params")
	}
	if len(params.Areas) == 0 || len(params.AspectRatios) == 0 || len(params.ScaleRatios) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "anchor areas, aspect ratios and scale ratios must not be empty")
	}
	if params.MinLevel < 0 || params.MinLevel+len(params.Areas) > maxPyramidLevel {
		return nil, errors.Wrapf(ErrInvalidInput, "pyramid levels %d..%d out of range", params.MinLevel, params.MinLevel+len(params.Areas)-1)
	}
	for name, values := range map[string][]float32{
		"area":         params.Areas,
		"aspect ratio": params.AspectRatios,
		"scale ratio":  params.ScaleRatios,
	} {
		for _, v := range values {
			if !(v > 0) || math32.IsInf(v, 1) {
				return nil, errors.Wrapf(ErrInvalidInput, "%s must be positive and finite, got %v", name, v)
			}
		}
	}

	cfg := &AnchorConfig{
		areas:        append([]float32(nil), params.Areas...),
		aspectRatios: append([]float32(nil), params.AspectRatios...),
		scaleRatios:  append([]float32(nil), params.ScaleRatios...),
		minLevel:     params.MinLevel,
	}
	cfg.anchorWH = cfg.generateAnchorWH()
	return cfg, nil
}

// generateAnchorWH lists, per level, the (w, h) pairs ordered by aspect ratio
// and then by scale.
func (c *AnchorConfig) generateAnchorWH() [][][2]float32 {
	anchorWH := make([][][2]float32, 0, len(c.areas))
	for _, area := range c.areas {
		levelWH := make([][2]float32, 0, c.AnchorsPerCell())
		for _, ar := range c.aspectRatios {
			h := math32.Sqrt(area / ar)
			w := ar * h
			for _, sr := range c.scaleRatios {
				levelWH = append(levelWH, [2]float32{w * sr, h * sr})
			}
		}
		anchorWH = append(anchorWH, levelWH)
	}
	return anchorWH
}

func (c *AnchorConfig) NumLevels() int {
	return len(c.areas)
}

func (c *AnchorConfig) AnchorsPerCell() int {
	return len(c.aspectRatios) * len(c.scaleRatios)
}

// DownsampleFactor is 2^(level+MinLevel) for a zero-based level index.
func (c *AnchorConfig) DownsampleFactor(level int) int {
	return 1 << (level + c.minLevel)
}

// AnchorWH returns a copy of the (w, h) pairs of one level.
func (c *AnchorConfig) AnchorWH(level int) [][2]float32 {
	return append([][2]float32(nil), c.anchorWH[level]...)
}

func (c *AnchorConfig) Areas() []float32 {
	return append([]float32(nil), c.areas...)
}

func (c *AnchorConfig) AspectRatios() []float32 {
	return append([]float32(nil), c.aspectRatios...)
}

func (c *AnchorConfig) ScaleRatios() []float32 {
	return append([]float32(nil), c.scaleRatios...)
}
