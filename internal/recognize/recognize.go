// Package recognize implements the character recognition stage: run the
// OCR network over the rectified plate and collapse its per-timestep class
// probabilities into text.
package recognize

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/anpr/internal/arena"
	"github.com/MeKo-Tech/anpr/internal/ctc"
	"github.com/MeKo-Tech/anpr/internal/imgproc"
	"github.com/MeKo-Tech/anpr/internal/runner"
)

// Config holds recognition stage settings.
type Config struct {
	InputWidth  int // fixed network input width, matches the rectifier output
	InputHeight int // fixed network input height
}

// DefaultConfig returns the stage defaults matching the deployed OCR model.
func DefaultConfig() Config {
	return Config{InputWidth: 128, InputHeight: 64}
}

// Stage wraps the OCR runner and the sequence decoder.
type Stage struct {
	cfg       Config
	runner    *runner.Runner
	alphabet  *ctc.Alphabet
	timesteps int
}

// New creates the recognition stage. The runner's output length must be a
// whole number of timesteps over the alphabet's class count.
func New(cfg Config, r *runner.Runner, alphabet *ctc.Alphabet) (*Stage, error) {
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid input resolution %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if alphabet == nil {
		return nil, fmt.Errorf("nil alphabet")
	}
	if got, want := shapeLen(r.InputShape()), cfg.InputWidth*cfg.InputHeight; got != want {
		return nil, fmt.Errorf("model input has %d elements, stage expects %d", got, want)
	}
	outLen := shapeLen(r.OutputShape())
	classes := alphabet.Classes()
	if outLen == 0 || outLen%classes != 0 {
		return nil, fmt.Errorf("model output length %d is not a multiple of %d classes", outLen, classes)
	}
	return &Stage{
		cfg:       cfg,
		runner:    r,
		alphabet:  alphabet,
		timesteps: outLen / classes,
	}, nil
}

// Timesteps returns the number of decoder timesteps the model emits.
func (s *Stage) Timesteps() int { return s.timesteps }

// Run recognizes the characters on a rectified plate image. The image must
// already have the stage's input resolution.
func (s *Stage) Run(a *arena.Arena, img *image.Gray) (ctc.Decoded, error) {
	if img == nil {
		return ctc.Decoded{}, fmt.Errorf("nil rectified image")
	}
	b := img.Bounds()
	if b.Dx() != s.cfg.InputWidth || b.Dy() != s.cfg.InputHeight {
		return ctc.Decoded{}, fmt.Errorf("rectified image is %dx%d, stage expects %dx%d",
			b.Dx(), b.Dy(), s.cfg.InputWidth, s.cfg.InputHeight)
	}

	if err := s.runner.Bind(a); err != nil {
		return ctc.Decoded{}, err
	}
	if err := imgproc.NormalizeInto(img, s.runner.Input()); err != nil {
		return ctc.Decoded{}, fmt.Errorf("recognize preprocess: %w", err)
	}
	if err := s.runner.Invoke(); err != nil {
		return ctc.Decoded{}, err
	}

	dec, err := ctc.DecodeGreedy(s.runner.Output(), s.timesteps, s.alphabet)
	if err != nil {
		return ctc.Decoded{}, fmt.Errorf("recognize decode: %w", err)
	}
	return dec, nil
}

func shapeLen(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
