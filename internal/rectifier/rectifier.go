// Package rectifier implements the perspective-correction stage: estimate
// the plate's four corners inside a margin-expanded crop, remap them to
// frame coordinates, and resample the frame into the canonical recognition
// rectangle.
package rectifier

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/frame"
	"github.com/MeKo-Tech/anpr/internal/geometry"
	"github.com/MeKo-Tech/anpr/internal/imgproc"
	"github.com/MeKo-Tech/anpr/internal/runner"
)

// cornerOutputs is the corner head layout: four (x, y) pairs in
// [0,1]-normalized crop-local coordinates, clockwise from top-left,
// followed by one confidence value.
const cornerOutputs = 9

// Config holds rectification stage settings.
type Config struct {
	InputSize    int     // corner network input resolution (square)
	OutputWidth  int     // canonical rectangle width, matches the OCR input
	OutputHeight int     // canonical rectangle height, matches the OCR input
	Margin       float64 // crop expansion as a fraction of the box size
	Threshold    float64 // corner confidence below this falls back to the box
}

// DefaultConfig returns the stage defaults matching the deployed corner
// model and the OCR input resolution.
func DefaultConfig() Config {
	return Config{
		InputSize:    64,
		OutputWidth:  128,
		OutputHeight: 64,
		Margin:       0.15,
		Threshold:    0.5,
	}
}

// Result is the stage output: the rectified plate at the canonical
// resolution, the quad that produced it, and whether the stage fell back to
// the axis-aligned box.
type Result struct {
	Image    *image.Gray
	Quad     geometry.Quad
	Fallback bool
}

// Stage wraps the corner-network runner with cropping, remapping and
// perspective resampling.
type Stage struct {
	cfg    Config
	runner *runner.Runner
}

// New creates the rectification stage.
func New(cfg Config, r *runner.Runner) (*Stage, error) {
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("invalid corner input size %d", cfg.InputSize)
	}
	if cfg.OutputWidth <= 0 || cfg.OutputHeight <= 0 {
		return nil, fmt.Errorf("invalid output resolution %dx%d", cfg.OutputWidth, cfg.OutputHeight)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold %.3f outside [0,1]", cfg.Threshold)
	}
	if got, want := shapeLen(r.InputShape()), cfg.InputSize*cfg.InputSize; got != want {
		return nil, fmt.Errorf("model input has %d elements, stage expects %d", got, want)
	}
	if got := shapeLen(r.OutputShape()); got != cornerOutputs {
		return nil, fmt.Errorf("model output has %d elements, corner head needs %d", got, cornerOutputs)
	}
	return &Stage{cfg: cfg, runner: r}, nil
}

// Run rectifies the boxed plate region of the frame. The returned image
// always has exactly the configured output resolution.
func (s *Stage) Run(a *arena.Arena, f *frame.Frame, box geometry.Box) (Result, error) {
	if err := box.Validate(f.Width, f.Height); err != nil {
		return Result{}, fmt.Errorf("rectify: %w", err)
	}

	quad, err := s.estimateQuad(a, f, box)
	if err != nil {
		return Result{}, err
	}

	fallback := quad.Confidence < s.cfg.Threshold
	if fallback {
		slog.Debug("corner confidence below threshold, using box corners",
			"confidence", quad.Confidence, "threshold", s.cfg.Threshold)
		quad = geometry.QuadFromBox(box)
	}

	img, err := geometry.WarpQuad(f.Gray(), quad.Points, s.cfg.OutputWidth, s.cfg.OutputHeight)
	if err != nil {
		return Result{}, fmt.Errorf("rectify: %w", err)
	}
	return Result{Image: img, Quad: quad, Fallback: fallback}, nil
}

// estimateQuad crops the margin-expanded box, runs the corner network and
// remaps its crop-local corners into frame coordinates.
func (s *Stage) estimateQuad(a *arena.Arena, f *frame.Frame, box geometry.Box) (geometry.Quad, error) {
	crop := box.Expand(s.cfg.Margin, f.Width, f.Height)
	rect := image.Rect(int(crop.X1), int(crop.Y1), ceil(crop.X2), ceil(crop.Y2))

	cropped, err := imgproc.CropGray(f.Gray(), rect)
	if err != nil {
		return geometry.Quad{}, fmt.Errorf("rectify crop: %w", err)
	}
	resized, err := imgproc.ResizeGray(cropped, s.cfg.InputSize, s.cfg.InputSize)
	if err != nil {
		return geometry.Quad{}, fmt.Errorf("rectify preprocess: %w", err)
	}

	if err := s.runner.Bind(a); err != nil {
		return geometry.Quad{}, err
	}
	if err := imgproc.NormalizeInto(resized, s.runner.Input()); err != nil {
		return geometry.Quad{}, fmt.Errorf("rectify preprocess: %w", err)
	}
	if err := s.runner.Invoke(); err != nil {
		return geometry.Quad{}, err
	}

	out := s.runner.Output()
	remap := geometry.CropTransform{
		OriginX: float64(rect.Min.X),
		OriginY: float64(rect.Min.Y),
		ScaleX:  float64(rect.Dx()),
		ScaleY:  float64(rect.Dy()),
	}
	var quad geometry.Quad
	for i := 0; i < 4; i++ {
		local := geometry.Point{
			X: clamp01(float64(out[2*i])),
			Y: clamp01(float64(out[2*i+1])),
		}
		quad.Points[i] = remap.Apply(local)
	}
	quad.Confidence = clamp01(float64(out[8]))
	return quad, nil
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

func ceil(v float64) int {
	i := int(v)
	if float64(i) < v {
		i++
	}
	return i
}
