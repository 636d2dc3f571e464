// Package runner executes one model asset against the shared tensor arena.
// Each runner owns its parsed asset and execution engine; the arena is
// claimed on Bind and stays exclusively owned until another runner binds.
package runner

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/model"
)

// Engine executes a loaded graph. Run reads the input view and writes the
// output view in place; both are arena-backed and sized per the asset's
// declared shapes.
type Engine interface {
	Run(input []float32, inputShape []int64, output []float32, outputShape []int64) error
	Close() error
}

// EngineFactory builds an engine for an asset's opaque graph payload.
type EngineFactory func(graph []byte, inputShape, outputShape []int64) (Engine, error)

// Runner binds one model to the shared arena and invokes it.
type Runner struct {
	name   string
	asset  *model.Asset
	engine Engine
	arena  *arena.Arena
	input  []float32
	output []float32
}

// Load validates the asset and constructs the execution engine. A schema
// mismatch or engine rejection surfaces as *ModelLoadError.
func Load(name string, asset *model.Asset, newEngine EngineFactory) (*Runner, error) {
	if asset == nil {
		return nil, &ModelLoadError{Model: name, Err: errors.New("nil asset")}
	}
	if asset.Version != model.SchemaVersion {
		return nil, &ModelLoadError{
			Model: name,
			Err:   fmt.Errorf("%w: %d", model.ErrSchemaVersion, asset.Version),
		}
	}
	engine, err := newEngine(asset.Graph, asset.InputShape, asset.OutputShape)
	if err != nil {
		return nil, &ModelLoadError{Model: name, Err: err}
	}
	slog.Debug("model loaded",
		"model", name,
		"input_shape", asset.InputShape,
		"output_shape", asset.OutputShape,
		"graph_bytes", len(asset.Graph))
	return &Runner{name: name, asset: asset, engine: engine}, nil
}

// Name returns the runner's model name.
func (r *Runner) Name() string { return r.name }

// InputShape returns the asset's declared input tensor shape.
func (r *Runner) InputShape() []int64 { return r.asset.InputShape }

// OutputShape returns the asset's declared output tensor shape.
func (r *Runner) OutputShape() []int64 { return r.asset.OutputShape }

// Bind claims the arena for this runner and carves the input and output
// tensor views from it. An arena too small for the asset's tensors is a
// *ModelLoadError.
func (r *Runner) Bind(a *arena.Arena) error {
	a.Claim(r.name)
	in, err := a.AllocFloat32(r.asset.InputLen())
	if err != nil {
		return &ModelLoadError{Model: r.name, Err: err}
	}
	out, err := a.AllocFloat32(r.asset.OutputLen())
	if err != nil {
		return &ModelLoadError{Model: r.name, Err: err}
	}
	r.arena = a
	r.input = in
	r.output = out
	return nil
}

// Input returns the bound input tensor view.
func (r *Runner) Input() []float32 { return r.input }

// Output returns the bound output tensor view.
func (r *Runner) Output() []float32 { return r.output }

// Invoke runs the engine over the bound views. The runner must currently
// own the arena; a stale binding is a programming error, not an inference
// failure.
func (r *Runner) Invoke() error {
	if r.arena == nil {
		return fmt.Errorf("runner %s: invoke before bind", r.name)
	}
	if owner := r.arena.Owner(); owner != r.name {
		return fmt.Errorf("runner %s: arena owned by %q", r.name, owner)
	}
	if err := r.engine.Run(r.input, r.asset.InputShape, r.output, r.asset.OutputShape); err != nil {
		return &InferenceError{Model: r.name, Err: err}
	}
	return nil
}

// Warmup binds and invokes the model n times over zeroed inputs to absorb
// first-inference latency.
func (r *Runner) Warmup(a *arena.Arena, n int) error {
	for i := 0; i < n; i++ {
		if err := r.Bind(a); err != nil {
			return err
		}
		for i := range r.input {
			r.input[i] = 0
		}
		if err := r.Invoke(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the engine. The arena is left to its current owner.
func (r *Runner) Close() error {
	if r.engine == nil {
		return nil
	}
	err := r.engine.Close()
	r.engine = nil
	return err
}
