package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/anpr/internal/detect"
	"github.com/MeKo-Tech/anpr/internal/pipeline"
	"github.com/MeKo-Tech/anpr/internal/recognize"
	"github.com/MeKo-Tech/anpr/internal/rectifier"
)

// Default model asset filenames, resolved relative to ModelsDir unless a
// per-stage model path is absolute.
const (
	DetectionModelFile = "detection.anpm"
	CornerModelFile    = "corner.anpm"
	OCRModelFile       = "ocr.anpm"
)

// DefaultConfig returns the configuration used when no file, environment
// variable, or flag overrides a value.
func DefaultConfig() *Config {
	p := pipeline.DefaultConfig()
	return &Config{
		ModelsDir: "models",
		LogLevel:  "info",
		Pipeline: PipelineConfig{
			ArenaSize:        p.ArenaSize,
			Alphabet:         p.Alphabet,
			WarmupIterations: p.WarmupIterations,
			Detect: DetectConfig{
				Model:       DetectionModelFile,
				InputWidth:  p.Detect.InputWidth,
				InputHeight: p.Detect.InputHeight,
				Threshold:   p.Detect.Threshold,
			},
			Rectify: RectifyConfig{
				Model:        CornerModelFile,
				InputSize:    p.Rectify.InputSize,
				OutputWidth:  p.Rectify.OutputWidth,
				OutputHeight: p.Rectify.OutputHeight,
				Margin:       p.Rectify.Margin,
				Threshold:    p.Rectify.Threshold,
			},
			Recognize: RecognizeConfig{
				Model:       OCRModelFile,
				InputWidth:  p.Recognize.InputWidth,
				InputHeight: p.Recognize.InputHeight,
			},
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Pipeline.ArenaSize <= 0 {
		return fmt.Errorf("arena_size must be positive, got %d", c.Pipeline.ArenaSize)
	}
	if c.Pipeline.Alphabet == "" {
		return fmt.Errorf("alphabet must not be empty")
	}
	if c.Pipeline.WarmupIterations < 0 {
		return fmt.Errorf("warmup_iterations must not be negative, got %d", c.Pipeline.WarmupIterations)
	}
	if err := validateThreshold(c.Pipeline.Detect.Threshold, "detect.threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Pipeline.Rectify.Threshold, "rectify.threshold"); err != nil {
		return err
	}
	if c.Pipeline.Rectify.Margin < 0 || c.Pipeline.Rectify.Margin >= 1 {
		return fmt.Errorf("rectify.margin must be in [0, 1), got %g", c.Pipeline.Rectify.Margin)
	}
	for _, d := range []struct {
		name string
		w, h int
	}{
		{"detect input", c.Pipeline.Detect.InputWidth, c.Pipeline.Detect.InputHeight},
		{"rectify crop", c.Pipeline.Rectify.InputSize, c.Pipeline.Rectify.InputSize},
		{"rectify output", c.Pipeline.Rectify.OutputWidth, c.Pipeline.Rectify.OutputHeight},
		{"recognize input", c.Pipeline.Recognize.InputWidth, c.Pipeline.Recognize.InputHeight},
	} {
		if d.w <= 0 || d.h <= 0 {
			return fmt.Errorf("%s resolution must be positive, got %dx%d", d.name, d.w, d.h)
		}
	}
	if c.Pipeline.Rectify.OutputWidth != c.Pipeline.Recognize.InputWidth ||
		c.Pipeline.Rectify.OutputHeight != c.Pipeline.Recognize.InputHeight {
		return fmt.Errorf("rectify output %dx%d must match recognize input %dx%d",
			c.Pipeline.Rectify.OutputWidth, c.Pipeline.Rectify.OutputHeight,
			c.Pipeline.Recognize.InputWidth, c.Pipeline.Recognize.InputHeight)
	}
	return nil
}

// ToPipeline converts the loaded configuration into the pipeline's own
// config struct.
func (c *Config) ToPipeline() pipeline.Config {
	return pipeline.Config{
		ArenaSize:        c.Pipeline.ArenaSize,
		Alphabet:         c.Pipeline.Alphabet,
		WarmupIterations: c.Pipeline.WarmupIterations,
		Detect: detect.Config{
			InputWidth:  c.Pipeline.Detect.InputWidth,
			InputHeight: c.Pipeline.Detect.InputHeight,
			Threshold:   c.Pipeline.Detect.Threshold,
		},
		Rectify: rectifier.Config{
			InputSize:    c.Pipeline.Rectify.InputSize,
			OutputWidth:  c.Pipeline.Rectify.OutputWidth,
			OutputHeight: c.Pipeline.Rectify.OutputHeight,
			Margin:       c.Pipeline.Rectify.Margin,
			Threshold:    c.Pipeline.Rectify.Threshold,
		},
		Recognize: recognize.Config{
			InputWidth:  c.Pipeline.Recognize.InputWidth,
			InputHeight: c.Pipeline.Recognize.InputHeight,
		},
	}
}

// DetectionModelPath resolves the detection model asset path.
func (c *Config) DetectionModelPath() string { return c.modelPath(c.Pipeline.Detect.Model) }

// CornerModelPath resolves the corner model asset path.
func (c *Config) CornerModelPath() string { return c.modelPath(c.Pipeline.Rectify.Model) }

// OCRModelPath resolves the OCR model asset path.
func (c *Config) OCRModelPath() string { return c.modelPath(c.Pipeline.Recognize.Model) }

func (c *Config) modelPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelsDir, name)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func validateThreshold(v float64, name string) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0.0 and 1.0, got %g", name, v)
	}
	return nil
}
