// Package detect implements the plate detection stage: downscale the
// captured frame to the detection network's fixed input resolution, run the
// network, and pick the most confident candidate box.
package detect

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/frame"
	"github.com/MeKo-Tech/anpr/internal/geometry"
	"github.com/MeKo-Tech/anpr/internal/imgproc"
	"github.com/MeKo-Tech/anpr/internal/runner"
)

// candidateFields is the per-candidate layout of the detection head:
// x1, y1, x2, y2 in [0,1] input-relative coordinates, then confidence.
const candidateFields = 5

// Config holds detection stage settings.
type Config struct {
	InputWidth  int     // fixed network input width
	InputHeight int     // fixed network input height
	Threshold   float64 // minimum confidence to accept a detection
}

// DefaultConfig returns the stage defaults matching the deployed detection
// model.
func DefaultConfig() Config {
	return Config{InputWidth: 320, InputHeight: 320, Threshold: 0.5}
}

// Stage wraps the detection runner with its pre/post-processing.
type Stage struct {
	cfg    Config
	runner *runner.Runner
}

// New creates the detection stage. The runner's declared shapes must match
// the configured input resolution and the candidate layout.
func New(cfg Config, r *runner.Runner) (*Stage, error) {
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid input resolution %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold %.3f outside [0,1]", cfg.Threshold)
	}
	if got, want := shapeLen(r.InputShape()), cfg.InputWidth*cfg.InputHeight; got != want {
		return nil, fmt.Errorf("model input has %d elements, stage expects %d", got, want)
	}
	if n := shapeLen(r.OutputShape()); n%candidateFields != 0 {
		return nil, fmt.Errorf("model output length %d is not a multiple of %d", n, candidateFields)
	}
	return &Stage{cfg: cfg, runner: r}, nil
}

// Threshold returns the configured confidence gate.
func (s *Stage) Threshold() float64 { return s.cfg.Threshold }

// Run locates the plate in the frame. The second return value is false when
// no candidate clears the confidence threshold.
func (s *Stage) Run(a *arena.Arena, f *frame.Frame) (geometry.Box, bool, error) {
	if err := s.runner.Bind(a); err != nil {
		return geometry.Box{}, false, err
	}

	resized, err := imgproc.ResizeGray(f.Gray(), s.cfg.InputWidth, s.cfg.InputHeight)
	if err != nil {
		return geometry.Box{}, false, fmt.Errorf("detection preprocess: %w", err)
	}
	if err := imgproc.NormalizeInto(resized, s.runner.Input()); err != nil {
		return geometry.Box{}, false, fmt.Errorf("detection preprocess: %w", err)
	}

	if err := s.runner.Invoke(); err != nil {
		return geometry.Box{}, false, err
	}

	box, ok := s.bestCandidate(s.runner.Output(), f.Width, f.Height)
	if !ok {
		return geometry.Box{}, false, nil
	}
	slog.Debug("plate detected",
		"x1", box.X1, "y1", box.Y1, "x2", box.X2, "y2", box.Y2,
		"confidence", box.Confidence)
	if box.Confidence < s.cfg.Threshold {
		return box, false, nil
	}
	return box, true, nil
}

// bestCandidate scans the candidate rows and converts the most confident
// one into frame coordinates. Degenerate rows are skipped.
func (s *Stage) bestCandidate(out []float32, frameW, frameH int) (geometry.Box, bool) {
	best := geometry.Box{Confidence: -1}
	found := false
	for off := 0; off+candidateFields <= len(out); off += candidateFields {
		conf := float64(out[off+4])
		if conf <= best.Confidence {
			continue
		}
		b := geometry.Box{
			X1:         float64(out[off]) * float64(frameW),
			Y1:         float64(out[off+1]) * float64(frameH),
			X2:         float64(out[off+2]) * float64(frameW),
			Y2:         float64(out[off+3]) * float64(frameH),
			Confidence: clamp01(conf),
		}.Clamp(frameW, frameH)
		if b.Validate(frameW, frameH) != nil {
			continue
		}
		best = b
		found = true
	}
	return best, found
}

func shapeLen(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
