package detector

import (
	"context"
	"runtime"
)

// ONNXConfig configures the ONNX Runtime backend.
type ONNXConfig struct {
	// ModelPath is the exported YOLOv8 model (input "images", output "output0").
	ModelPath string

	// SharedLibraryPath is the onnxruntime shared library. Empty selects
	// DefaultSharedLibraryPath.
	SharedLibraryPath string

	// InputSize is the square model input edge in pixels. Default 640.
	InputSize int

	YOLO YOLOConfig
}

func (c *ONNXConfig) applyDefaults() {
	if c.InputSize <= 0 {
		c.InputSize = 640
	}
	if c.SharedLibraryPath == "" {
		c.SharedLibraryPath = DefaultSharedLibraryPath()
	}
	if c.YOLO.IoUThreshold <= 0 {
		c.YOLO.IoUThreshold = 0.45
	}
}

// DefaultSharedLibraryPath returns the conventional onnxruntime library
// location for the running platform.
func DefaultSharedLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "/usr/local/lib/libonnxruntime.dylib"
	default:
		return "/usr/local/lib/libonnxruntime.so"
	}
}

// ONNXFactory returns a Factory that builds an ONNX detector from cfg.
func ONNXFactory(cfg ONNXConfig) Factory {
	return func(context.Context) (Detector, error) {
		d, err := NewONNX(cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}
