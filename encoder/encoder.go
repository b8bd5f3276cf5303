package encoder

import (
	"github.com/okieraised/go-retinanet-coder/config"
	"github.com/okieraised/go-retinanet-coder/metrics"
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/okieraised/go-retinanet-coder/rcnn"
	"github.com/pion/logging"
	"github.com/pkg/errors"
)

// Detection is one decoded box in corner form.
type Detection struct {
	Box   processing.Box `json:"box"`
	Label int            `json:"label"`
	Score float32        `json:"score"`
}

// EncodeStats counts the classification targets produced by one encode call.
type EncodeStats struct {
	Foreground int `json:"foreground"`
	Background int `json:"background"`
	Ignored    int `json:"ignored"`
}

// DataEncoder translates between ground-truth boxes and RetinaNet targets,
// and between network outputs and detections. It is safe for concurrent use.
type DataEncoder struct {
	anchorConfig *processing.AnchorConfig
	params       config.BoxCoderParams
	logger       logging.LeveledLogger
	metrics      *metrics.Metrics
}

type Option func(*DataEncoder)

func WithLoggerFactory(factory logging.LoggerFactory) Option {
	return func(e *DataEncoder) {
		e.logger = factory.NewLogger("encoder")
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *DataEncoder) {
		e.metrics = m
	}
}

// NewDataEncoder builds an encoder. Nil params fall back to the defaults.
func NewDataEncoder(anchorParams *config.AnchorParams, coderParams *config.BoxCoderParams, opts ...Option) (*DataEncoder, error) {
	if anchorParams == nil {
		anchorParams = config.DefaultAnchorParams
	}
	if coderParams == nil {
		coderParams = config.DefaultBoxCoderParams
	}

	anchorConfig, err := processing.NewAnchorConfig(anchorParams)
	if err != nil {
		return nil, err
	}
	if err := validateCoderParams(coderParams); err != nil {
		return nil, err
	}

	e := &DataEncoder{
		anchorConfig: anchorConfig,
		params:       *coderParams,
		logger:       logging.NewDefaultLoggerFactory().NewLogger("encoder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func validateCoderParams(p *config.BoxCoderParams) error {
	for i, s := range p.ScaleFactors {
		if s == 0 {
			return errors.Wrapf(processing.ErrInvalidInput, "scale factor %d is zero", i)
		}
	}
	if p.BackgroundIoU > p.ForegroundIoU {
		return errors.Wrapf(processing.ErrInvalidInput, "background IoU %v above foreground IoU %v", p.BackgroundIoU, p.ForegroundIoU)
	}
	return nil
}

func (e *DataEncoder) AnchorConfig() *processing.AnchorConfig {
	return e.anchorConfig
}

func (e *DataEncoder) Params() config.BoxCoderParams {
	return e.params
}

// AnchorBoxes returns the center form anchor lattice for size.
func (e *DataEncoder) AnchorBoxes(size processing.InputSize) ([]processing.Box, error) {
	anchors, err := rcnn.AnchorBoxes(e.anchorConfig, size)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("generated %d anchors for input %s", len(anchors), size)
	return anchors, nil
}
