package config

// Config is the complete configuration for the anpr application. It can be
// loaded from configuration files, environment variables, and command-line
// flags; later sources override earlier ones.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// MetricsAddr, when non-empty, exposes Prometheus metrics on that
	// listen address during the run command.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
}

// PipelineConfig contains the recognition pipeline settings.
type PipelineConfig struct {
	ArenaSize        int    `mapstructure:"arena_size" yaml:"arena_size" json:"arena_size"`
	Alphabet         string `mapstructure:"alphabet" yaml:"alphabet" json:"alphabet"`
	WarmupIterations int    `mapstructure:"warmup_iterations" yaml:"warmup_iterations" json:"warmup_iterations"`

	Detect    DetectConfig    `mapstructure:"detect" yaml:"detect" json:"detect"`
	Rectify   RectifyConfig   `mapstructure:"rectify" yaml:"rectify" json:"rectify"`
	Recognize RecognizeConfig `mapstructure:"recognize" yaml:"recognize" json:"recognize"`
}

// DetectConfig contains plate detection settings.
type DetectConfig struct {
	Model       string  `mapstructure:"model" yaml:"model" json:"model"`
	InputWidth  int     `mapstructure:"input_width" yaml:"input_width" json:"input_width"`
	InputHeight int     `mapstructure:"input_height" yaml:"input_height" json:"input_height"`
	Threshold   float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
}

// RectifyConfig contains corner refinement and warp settings.
type RectifyConfig struct {
	Model        string  `mapstructure:"model" yaml:"model" json:"model"`
	InputSize    int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	OutputWidth  int     `mapstructure:"output_width" yaml:"output_width" json:"output_width"`
	OutputHeight int     `mapstructure:"output_height" yaml:"output_height" json:"output_height"`
	Margin       float64 `mapstructure:"margin" yaml:"margin" json:"margin"`
	Threshold    float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
}

// RecognizeConfig contains character recognition settings.
type RecognizeConfig struct {
	Model       string `mapstructure:"model" yaml:"model" json:"model"`
	InputWidth  int    `mapstructure:"input_width" yaml:"input_width" json:"input_width"`
	InputHeight int    `mapstructure:"input_height" yaml:"input_height" json:"input_height"`
}
