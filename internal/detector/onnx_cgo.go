//go:build cgo

package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ironsheep/traffic-sign-mcp/internal/detection"
	"github.com/ironsheep/traffic-sign-mcp/internal/imaging"
)

var (
	ortMu          sync.Mutex
	ortInitialized bool
)

// initializeEnvironment loads onnxruntime once per process.
func initializeEnvironment(libPath string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortInitialized {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime from %s: %w", libPath, err)
	}
	ortInitialized = true
	return nil
}

// ONNX runs a YOLOv8 model through ONNX Runtime. The session reuses fixed
// input and output tensors, so calls must not overlap; use Serialize.
type ONNX struct {
	cfg     ONNXConfig
	anchors int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewONNX loads the model and allocates its tensors.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	cfg.applyDefaults()
	if cfg.YOLO.NumClasses <= 0 {
		return nil, fmt.Errorf("%w: model needs at least one class", detection.ErrDetectorUnavailable)
	}
	if err := initializeEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrDetectorUnavailable, err)
	}

	size := int64(cfg.InputSize)
	anchors := anchorCount(cfg.InputSize)

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create input tensor: %w", detection.ErrDetectorUnavailable, err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+cfg.YOLO.NumClasses), int64(anchors)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("%w: failed to create output tensor: %w", detection.ErrDetectorUnavailable, err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: failed to create session options: %w", detection.ErrDetectorUnavailable, err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}, options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: failed to load model %s: %w", detection.ErrDetectorUnavailable, cfg.ModelPath, err)
	}

	return &ONNX{cfg: cfg, anchors: anchors, session: session, input: input, output: output}, nil
}

// Detect letterboxes img, runs the model and decodes its output.
func (o *ONNX) Detect(ctx context.Context, img image.Image) ([]detection.Raw, error) {
	if o.session == nil {
		return nil, fmt.Errorf("%w: session closed", detection.ErrDetectorUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrInferenceFailure, err)
	}

	boxed, tr := imaging.Letterbox(img, o.cfg.InputSize)
	imaging.CHW(boxed, o.input.GetData())

	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %w", detection.ErrInferenceFailure, err)
	}
	return decodeYOLO(o.output.GetData(), o.anchors, o.cfg.YOLO, tr)
}

// Close releases the session and tensors. The environment stays loaded.
func (o *ONNX) Close() error {
	var err error
	if o.session != nil {
		err = o.session.Destroy()
		o.session = nil
	}
	if o.input != nil {
		o.input.Destroy()
		o.input = nil
	}
	if o.output != nil {
		o.output.Destroy()
		o.output = nil
	}
	return err
}
