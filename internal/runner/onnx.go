package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// onnxEngine runs a model graph through ONNX Runtime. The asset's opaque
// payload is the serialized ONNX graph produced by the conversion
// collaborator.
type onnxEngine struct {
	session *onnxrt.DynamicAdvancedSession
}

var onnxInitOnce sync.Once

// NewONNXEngine is the production EngineFactory.
func NewONNXEngine(graph []byte, inputShape, outputShape []int64) (Engine, error) {
	var initErr error
	onnxInitOnce.Do(func() {
		if err := setONNXLibraryPath(); err != nil {
			initErr = err
			return
		}
		if !onnxrt.IsInitialized() {
			initErr = onnxrt.InitializeEnvironment()
		}
	})
	if initErr != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", initErr)
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfoWithONNXData(graph)
	if err != nil {
		return nil, fmt.Errorf("graph io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer func() { _ = opts.Destroy() }()
	// Single-core target: keep ONNX from spawning intra-op workers.
	_ = opts.SetIntraOpNumThreads(1)

	sess, err := onnxrt.NewDynamicAdvancedSessionWithONNXData(
		graph, []string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &onnxEngine{session: sess}, nil
}

// Run wraps the arena-backed views in ONNX tensors and executes the graph.
// The output tensor shares the output view's memory, so results land
// directly in the arena.
func (e *onnxEngine) Run(input []float32, inputShape []int64, output []float32, outputShape []int64) error {
	inT, err := onnxrt.NewTensor(onnxrt.NewShape(inputShape...), input)
	if err != nil {
		return fmt.Errorf("input tensor: %w", err)
	}
	defer func() { _ = inT.Destroy() }()

	outT, err := onnxrt.NewTensor(onnxrt.NewShape(outputShape...), output)
	if err != nil {
		return fmt.Errorf("output tensor: %w", err)
	}
	defer func() { _ = outT.Destroy() }()

	if err := e.session.Run([]onnxrt.Value{inT}, []onnxrt.Value{outT}); err != nil {
		return fmt.Errorf("session run: %w", err)
	}
	return nil
}

func (e *onnxEngine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}

// setONNXLibraryPath prefers a system-installed runtime, then falls back to
// a project-local copy under onnxruntime/lib.
func setONNXLibraryPath() error {
	if path := findSystemONNXLibrary(); path != "" {
		onnxrt.SetSharedLibraryPath(path)
		return nil
	}
	projectLib, err := findProjectONNXLibrary()
	if err != nil {
		return err
	}
	onnxrt.SetSharedLibraryPath(projectLib)
	return nil
}

func findSystemONNXLibrary() string {
	systemPaths := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
	for _, path := range systemPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func findProjectONNXLibrary() (string, error) {
	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	libName, err := onnxLibraryName()
	if err != nil {
		return "", err
	}
	libPath := filepath.Join(root, "onnxruntime", "lib", libName)
	if _, err := os.Stat(libPath); err != nil {
		return "", fmt.Errorf("ONNX Runtime library not found at %s", libPath)
	}
	return libPath, nil
}

func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root := cwd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", errors.New("could not find project root")
		}
		root = parent
	}
}

func onnxLibraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}
