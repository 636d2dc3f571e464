package runner

import "fmt"

// ModelLoadError reports a model that cannot be made runnable: unsupported
// schema, rejected graph, or an arena too small for its tensors. Fatal at
// startup.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError reports an execution-engine failure during Invoke.
// Recoverable per frame: the orchestrator abandons the frame and resumes
// capture.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("invoke model %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
