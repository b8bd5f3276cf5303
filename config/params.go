package config

import (
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type AnchorParams struct {
	Areas        []float32 `json:"areas" yaml:"areas"`
	AspectRatios []float32 `json:"aspect_ratios" yaml:"aspect_ratios"`
	ScaleRatios  []float32 `json:"scale_ratios" yaml:"scale_ratios"`
	MinLevel     int       `json:"min_level" yaml:"min_level"`
}

// DefaultAnchorParams covers pyramid levels P3 to P7.
var DefaultAnchorParams = &AnchorParams{
	Areas:        []float32{32 * 32, 64 * 64, 128 * 128, 256 * 256, 512 * 512},
	AspectRatios: []float32{0.5, 1.0, 2.0},
	ScaleRatios:  []float32{1.0, float32(math.Pow(2, 1.0/3)), float32(math.Pow(2, 2.0/3))},
	MinLevel:     3,
}

func NewAnchorParams(areas, aspectRatios, scaleRatios []float32, minLevel int) *AnchorParams {
	return &AnchorParams{
		Areas:        areas,
		AspectRatios: aspectRatios,
		ScaleRatios:  scaleRatios,
		MinLevel:     minLevel,
	}
}

type BoxCoderParams struct {
	ScaleFactors  [4]float32 `json:"scale_factors" yaml:"scale_factors"`
	ForegroundIoU float64    `json:"foreground_iou" yaml:"foreground_iou"`
	BackgroundIoU float64    `json:"background_iou" yaml:"background_iou"`
	ClsThreshold  float32    `json:"cls_threshold" yaml:"cls_threshold"`
	NMSThreshold  float64    `json:"nms_threshold" yaml:"nms_threshold"`
}

var DefaultBoxCoderParams = &BoxCoderParams{
	ScaleFactors:  [4]float32{10, 10, 5, 5},
	ForegroundIoU: 0.5,
	BackgroundIoU: 0.4,
	ClsThreshold:  0.05,
	NMSThreshold:  0.5,
}

func NewBoxCoderParams(scaleFactors [4]float32, foregroundIoU, backgroundIoU float64, clsThreshold float32, nmsThreshold float64) *BoxCoderParams {
	return &BoxCoderParams{
		ScaleFactors:  scaleFactors,
		ForegroundIoU: foregroundIoU,
		BackgroundIoU: backgroundIoU,
		ClsThreshold:  clsThreshold,
		NMSThreshold:  nmsThreshold,
	}
}

type RetinaNetDetectionParams struct {
	ModelName     string        `json:"model_name" yaml:"model_name"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	ImageSize     [2]int        `json:"image_size" yaml:"image_size"`
	NumClasses    int           `json:"num_classes" yaml:"num_classes"`
	LocOutputName string        `json:"loc_output_name" yaml:"loc_output_name"`
	ClsOutputName string        `json:"cls_output_name" yaml:"cls_output_name"`
	ApplySigmoid  bool          `json:"apply_sigmoid" yaml:"apply_sigmoid"`
	ClassNames    []string      `json:"class_names" yaml:"class_names"`
}

// DefaultRetinaNetDetectionParams expects 21 output channels: background plus
// the 20 VOC categories.
var DefaultRetinaNetDetectionParams = &RetinaNetDetectionParams{
	ModelName:     "object_detection_retinanet",
	Timeout:       20 * time.Second,
	ImageSize:     [2]int{600, 600},
	NumClasses:    21,
	LocOutputName: "loc_preds",
	ClsOutputName: "cls_preds",
	ApplySigmoid:  true,
	ClassNames:    VOCClassNames,
}

func NewRetinaNetDetectionParams(modelName string, timeout time.Duration, imgSize [2]int, numClasses int, locOutputName, clsOutputName string, applySigmoid bool) *RetinaNetDetectionParams {
	return &RetinaNetDetectionParams{
		ModelName:     modelName,
		Timeout:       timeout,
		ImageSize:     imgSize,
		NumClasses:    numClasses,
		LocOutputName: locOutputName,
		ClsOutputName: clsOutputName,
		ApplySigmoid:  applySigmoid,
	}
}

// Params is the root of a YAML parameter document.
type Params struct {
	Anchor    *AnchorParams             `json:"anchor" yaml:"anchor"`
	BoxCoder  *BoxCoderParams           `json:"box_coder" yaml:"box_coder"`
	Detection *RetinaNetDetectionParams `json:"detection" yaml:"detection"`
}

func DefaultParams() *Params {
	anchor := *DefaultAnchorParams
	anchor.Areas = append([]float32(nil), DefaultAnchorParams.Areas...)
	anchor.AspectRatios = append([]float32(nil), DefaultAnchorParams.AspectRatios...)
	anchor.ScaleRatios = append([]float32(nil), DefaultAnchorParams.ScaleRatios...)
	coder := *DefaultBoxCoderParams
	detection := *DefaultRetinaNetDetectionParams
	detection.ClassNames = append([]string(nil), DefaultRetinaNetDetectionParams.ClassNames...)
	return &Params{
		Anchor:    &anchor,
		BoxCoder:  &coder,
		Detection: &detection,
	}
}

// Parse decodes a YAML document. Sections missing from the document keep
// their default values; fields inside a present section override defaults.
func Parse(data []byte) (*Params, error) {
	params := DefaultParams()
	if err := yaml.Unmarshal(data, params); err != nil {
		return nil, errors.Wrap(err, "parse params")
	}
	if params.Anchor == nil {
		params.Anchor = DefaultParams().Anchor
	}
	if params.BoxCoder == nil {
		params.BoxCoder = DefaultParams().BoxCoder
	}
	if params.Detection == nil {
		params.Detection = DefaultParams().Detection
	}
	return params, nil
}

func Load(path string) (*Params, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read params %s", path)
	}
	return Parse(content)
}
