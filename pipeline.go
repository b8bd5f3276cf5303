package go_retinanet_coder

import (
	"github.com/okieraised/go-retinanet-coder/config"
	"github.com/okieraised/go-retinanet-coder/encoder"
	"github.com/okieraised/go-retinanet-coder/metrics"
	"github.com/okieraised/go-retinanet-coder/modules"
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/okieraised/go-retinanet-coder/visualize"
	gotritonclient "github.com/okieraised/go-triton-client"
	"github.com/pion/logging"
	"gocv.io/x/gocv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

type DetectionResult struct {
	Detections []encoder.Detection `json:"detections"`
	Count      int                 `json:"count"`
}

type DetectionPipeline struct {
	tritonClient *gotritonclient.TritonGRPCClient
	encoder      *encoder.DataEncoder
	detection    *modules.RetinaNetDetectionClient
	classNames   []string
}

// NewTritonClient dials a Triton server over plaintext gRPC.
func NewTritonClient(url string) (*gotritonclient.TritonGRPCClient, error) {
	return gotritonclient.NewTritonGRPCClient(
		url,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{PermitWithoutStream: true}),
	)
}

// NewDetectionPipeline wires the box coder and the Triton detection model.
// Nil params use the defaults; m may be nil.
func NewDetectionPipeline(tritonClient *gotritonclient.TritonGRPCClient, params *config.Params, m *metrics.Metrics) (*DetectionPipeline, error) {
	if params == nil {
		params = config.DefaultParams()
	}
	loggerFactory := logging.NewDefaultLoggerFactory()

	enc, err := encoder.NewDataEncoder(params.Anchor, params.BoxCoder,
		encoder.WithLoggerFactory(loggerFactory),
		encoder.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	detection, err := modules.NewRetinaNetDetectionClient(tritonClient, params.Detection, enc,
		modules.WithLoggerFactory(loggerFactory),
	)
	if err != nil {
		return nil, err
	}

	return &DetectionPipeline{
		tritonClient: tritonClient,
		encoder:      enc,
		detection:    detection,
		classNames:   detection.ModelParams.ClassNames,
	}, nil
}

func (p *DetectionPipeline) Encoder() *encoder.DataEncoder {
	return p.encoder
}

// Detect runs the model on a BGR image and returns boxes in image coordinates.
func (p *DetectionPipeline) Detect(img gocv.Mat) (*DetectionResult, error) {
	resp := &DetectionResult{}

	detections, err := p.detection.InferImage(img)
	if err != nil {
		return resp, err
	}

	imgShape := img.Size()
	resp.Detections = rescaleDetections(detections, p.detection.InputSize(), imgShape[1], imgShape[0])
	resp.Count = len(resp.Detections)
	return resp, nil
}

// Annotate draws a detection result onto the image it was computed from.
func (p *DetectionPipeline) Annotate(img *gocv.Mat, result *DetectionResult) error {
	return visualize.DrawDetections(img, result.Detections, p.classNames)
}

// rescaleDetections maps boxes from the model input back onto an image of
// width x height. The input was resized without preserving aspect ratio.
func rescaleDetections(detections []encoder.Detection, inputSize processing.InputSize, width, height int) []encoder.Detection {
	sx := float32(width) / float32(inputSize.Width)
	sy := float32(height) / float32(inputSize.Height)

	out := make([]encoder.Detection, 0, len(detections))
	for _, det := range detections {
		b := det.Box
		det.Box = processing.Box{b[0] * sx, b[1] * sy, b[2] * sx, b[3] * sy}
		out = append(out, det)
	}
	return out
}
