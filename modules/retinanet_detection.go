package modules

import (
	"image"

	"github.com/okieraised/go-retinanet-coder/config"
	"github.com/okieraised/go-retinanet-coder/encoder"
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/okieraised/go-retinanet-coder/utils"
	gotritonclient "github.com/okieraised/go-triton-client"
	"github.com/okieraised/go-triton-client/triton_proto"
	"github.com/pion/logging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// ImageNet statistics in RGB order, applied after scaling pixels to [0, 1].
var (
	pixelMeans = [3]float32{0.485, 0.456, 0.406}
	pixelStds  = [3]float32{0.229, 0.224, 0.225}
)

type RetinaNetDetectionClient struct {
	tritonClient *gotritonclient.TritonGRPCClient
	ModelParams  *config.RetinaNetDetectionParams
	ModelConfig  *triton_proto.ModelConfigResponse
	encoder      *encoder.DataEncoder
	inputSize    processing.InputSize
	logger       logging.LeveledLogger
}

type DetectionOption func(*RetinaNetDetectionClient)

func WithLoggerFactory(factory logging.LoggerFactory) DetectionOption {
	return func(c *RetinaNetDetectionClient) {
		c.logger = factory.NewLogger("retinanet")
	}
}

// NewRetinaNetDetectionClient fetches the model configuration from Triton and
// prepares a client that decodes outputs with enc.
func NewRetinaNetDetectionClient(tritonClient *gotritonclient.TritonGRPCClient, cfg *config.RetinaNetDetectionParams, enc *encoder.DataEncoder, opts ...DetectionOption) (*RetinaNetDetectionClient, error) {
	client, err := newRetinaNetDetectionClient(cfg, enc, opts...)
	if err != nil {
		return nil, err
	}

	inferenceConfig, err := tritonClient.GetModelConfiguration(client.ModelParams.Timeout, client.ModelParams.ModelName, "")
	if err != nil {
		return nil, errors.Wrapf(err, "get model configuration for %s", client.ModelParams.ModelName)
	}
	client.tritonClient = tritonClient
	client.ModelConfig = inferenceConfig

	return client, nil
}

func newRetinaNetDetectionClient(cfg *config.RetinaNetDetectionParams, enc *encoder.DataEncoder, opts ...DetectionOption) (*RetinaNetDetectionClient, error) {
	if cfg == nil {
		cfg = config.DefaultRetinaNetDetectionParams
	}
	if enc == nil {
		return nil, errors.Wrap(processing.ErrInvalidInput, "nil encoder")
	}

	inputSize := processing.NewInputSize(cfg.ImageSize[1], cfg.ImageSize[0])
	if err := inputSize.Validate(); err != nil {
		return nil, err
	}

	client := &RetinaNetDetectionClient{
		ModelParams: cfg,
		encoder:     enc,
		inputSize:   inputSize,
		logger:      logging.NewDefaultLoggerFactory().NewLogger("retinanet"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *RetinaNetDetectionClient) InputSize() processing.InputSize {
	return c.inputSize
}

// Preprocess resizes a BGR image to the model input size and returns a
// normalized [1, 3, H, W] RGB tensor.
func (c *RetinaNetDetectionClient) Preprocess(img gocv.Mat) (*tensor.Dense, error) {
	if img.Empty() {
		return nil, errors.Wrap(processing.ErrInvalidInput, "empty image")
	}

	resizedImg := gocv.NewMat()
	defer resizedImg.Close()
	gocv.Resize(img, &resizedImg, image.Point{X: c.inputSize.Width, Y: c.inputSize.Height}, 0, 0, gocv.InterpolationLinear)

	rgbImg := gocv.NewMat()
	defer rgbImg.Close()
	gocv.CvtColor(resizedImg, &rgbImg, gocv.ColorBGRToRGB)

	imgTensors := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(1, 3, c.inputSize.Height, c.inputSize.Width),
	)

	for z := range 3 {
		for y := range c.inputSize.Height {
			for x := range c.inputSize.Width {
				v := (float32(rgbImg.GetVecbAt(y, x)[z])/255 - pixelMeans[z]) / pixelStds[z]
				if err := imgTensors.SetAt(v, 0, z, y, x); err != nil {
					return nil, err
				}
			}
		}
	}
	return imgTensors, nil
}

// InferImage preprocesses img and runs Infer. Boxes are in model input
// coordinates.
func (c *RetinaNetDetectionClient) InferImage(img gocv.Mat) ([]encoder.Detection, error) {
	input, err := c.Preprocess(img)
	if err != nil {
		return nil, err
	}
	return c.Infer(input)
}

// Infer sends a preprocessed [1, 3, H, W] float32 tensor to the model and
// decodes its outputs.
func (c *RetinaNetDetectionClient) Infer(input *tensor.Dense) ([]encoder.Detection, error) {
	modelRequest, err := c.buildRequest(input)
	if err != nil {
		return nil, err
	}

	inferResp, err := c.tritonClient.ModelGRPCInfer(c.ModelParams.Timeout, modelRequest)
	if err != nil {
		return nil, errors.Wrapf(err, "infer %s", c.ModelParams.ModelName)
	}

	return c.decodeResponse(inferResp)
}

func (c *RetinaNetDetectionClient) buildRequest(input *tensor.Dense) (*triton_proto.ModelInferRequest, error) {
	if input == nil || input.Dtype() != tensor.Float32 {
		return nil, errors.Wrap(processing.ErrInvalidInput, "input must be a float32 tensor")
	}
	shape := input.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 || shape[2] != c.inputSize.Height || shape[3] != c.inputSize.Width {
		return nil, errors.Wrapf(processing.ErrInvalidInput, "expected input shape (1, 3, %d, %d), got %v",
			c.inputSize.Height, c.inputSize.Width, shape)
	}
	if input.IsMaterializable() {
		input = input.Materialize().(*tensor.Dense)
	}

	inputShape := make([]int64, 0, len(shape))
	for _, s := range shape {
		inputShape = append(inputShape, int64(s))
	}

	modelRequest := &triton_proto.ModelInferRequest{
		ModelName: c.ModelParams.ModelName,
	}

	modelInputs := make([]*triton_proto.ModelInferRequest_InferInputTensor, 0)
	for _, inputCfg := range c.ModelConfig.Config.Input {
		modelInput := &triton_proto.ModelInferRequest_InferInputTensor{
			Name:     inputCfg.Name,
			Datatype: inputCfg.DataType.String()[5:],
			Shape:    inputShape,
			Contents: &triton_proto.InferTensorContents{
				Fp32Contents: input.Float32s(),
			},
		}
		modelInputs = append(modelInputs, modelInput)
	}
	if len(modelInputs) == 0 {
		return nil, errors.Errorf("model %s declares no inputs", c.ModelParams.ModelName)
	}

	modelRequest.Inputs = modelInputs
	return modelRequest, nil
}

func (c *RetinaNetDetectionClient) decodeResponse(inferResp *triton_proto.ModelInferResponse) ([]encoder.Detection, error) {
	locPreds, clsPreds, err := c.parseOutputs(inferResp)
	if err != nil {
		return nil, err
	}

	if c.ModelParams.ApplySigmoid {
		for _, row := range clsPreds {
			for j := range row {
				row[j] = utils.Sigmoid(row[j])
			}
		}
	}

	detections, err := c.encoder.DecodeDetections(locPreds, clsPreds, c.inputSize)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("%s: %d detections", c.ModelParams.ModelName, len(detections))
	return detections, nil
}

// parseOutputs picks the regression and classification outputs by name.
func (c *RetinaNetDetectionClient) parseOutputs(inferResp *triton_proto.ModelInferResponse) ([][4]float32, [][]float32, error) {
	var locTensor, clsTensor *tensor.Dense

	for idx, out := range inferResp.GetOutputs() {
		if out.Name != c.ModelParams.LocOutputName && out.Name != c.ModelParams.ClsOutputName {
			continue
		}

		var data []float32
		if idx < len(inferResp.RawOutputContents) {
			values, err := utils.BytesToFloat32s(inferResp.RawOutputContents[idx])
			if err != nil {
				return nil, nil, errors.Wrapf(err, "output %s", out.Name)
			}
			data = values
		} else if out.Contents != nil {
			data = out.Contents.Fp32Contents
		}

		outShape := make([]int, 0)
		size := 1
		for _, shape := range out.Shape {
			outShape = append(outShape, int(shape))
			size *= int(shape)
		}
		if size != len(data) {
			return nil, nil, errors.Errorf("output %s has shape %v but %d values", out.Name, out.Shape, len(data))
		}

		outTensors := tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(outShape...),
			tensor.WithBacking(data),
		)
		if out.Name == c.ModelParams.LocOutputName {
			locTensor = outTensors
		} else {
			clsTensor = outTensors
		}
	}

	if locTensor == nil || clsTensor == nil {
		return nil, nil, errors.Errorf("missing outputs %s and %s in response", c.ModelParams.LocOutputName, c.ModelParams.ClsOutputName)
	}

	locPreds, err := utils.DenseToQuads(locTensor)
	if err != nil {
		return nil, nil, errors.Wrap(err, c.ModelParams.LocOutputName)
	}
	clsPreds, err := utils.DenseToRows(clsTensor)
	if err != nil {
		return nil, nil, errors.Wrap(err, c.ModelParams.ClsOutputName)
	}
	if c.ModelParams.NumClasses > 0 && len(clsPreds) > 0 && len(clsPreds[0]) != c.ModelParams.NumClasses {
		return nil, nil, errors.Errorf("expected %d classes, got %d", c.ModelParams.NumClasses, len(clsPreds[0]))
	}
	return locPreds, clsPreds, nil
}
