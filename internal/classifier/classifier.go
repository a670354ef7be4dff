// Package classifier runs a pre-trained signal classifier over a feature vector.
package classifier

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrModelNotFound is returned when the model artifact does not exist.
var ErrModelNotFound = errors.New("classifier model artifact not found")

// Classifier maps a feature vector to a label in {-1, 0, 1}.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// Func adapts a plain function to Classifier.
type Func func(features []float64) (int, error)

// Predict calls f.
func (f Func) Predict(features []float64) (int, error) { return f(features) }

// Options configures an ONNX classifier.
type Options struct {
	Path        string
	LibraryPath string
	InputName   string
	OutputName  string
	Features    int
}

// ONNX runs an exported classifier with a [1, Features] float32 input and an int64 label
// output. A session owns its tensors, so Predict is serialized.
type ONNX struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[int64]
	features int
}

var (
	ortOnce sync.Once
	ortErr  error
)

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	}
	return "/usr/lib/libonnxruntime.so"
}

// initializeORT loads the shared library once per process.
func initializeORT(libPath string) error {
	ortOnce.Do(func() {
		if libPath == "" {
			libPath = defaultLibraryPath()
		}
		ort.SetSharedLibraryPath(libPath)
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// LoadONNX opens the model at opts.Path. A missing artifact is ErrModelNotFound.
func LoadONNX(opts Options) (*ONNX, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: no path configured", ErrModelNotFound)
	}
	if _, err := os.Stat(opts.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, opts.Path)
		}
		return nil, fmt.Errorf("checking model %s: %w", opts.Path, err)
	}
	if opts.Features <= 0 {
		return nil, fmt.Errorf("feature width must be positive, got %d", opts.Features)
	}
	if err := initializeORT(opts.LibraryPath); err != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", err)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(opts.Features)), make([]float32, opts.Features))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(opts.Path,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &ONNX{session: session, input: input, output: output, features: opts.Features}, nil
}

// Predict runs one inference.
func (m *ONNX) Predict(features []float64) (int, error) {
	if len(features) != m.features {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(features), m.features)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.input.GetData()
	for i, v := range features {
		data[i] = float32(v)
	}
	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	return int(m.output.GetData()[0]), nil
}

// Close releases the session and its tensors.
func (m *ONNX) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
		m.input = nil
	}
	if m.output != nil {
		errs = append(errs, m.output.Destroy())
		m.output = nil
	}
	return errors.Join(errs...)
}
