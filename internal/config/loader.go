package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "anpr"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "ANPR"
)

// Loader loads configuration from files, environment variables, and
// defaults, in ascending precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader over the global viper instance so that flag
// bindings made by the command layer take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads the configuration from the standard search paths. A missing
// config file is not an error; defaults and environment variables apply.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshal()
}

// LoadWithFile reads the configuration from a specific file. Unlike Load,
// the file must exist.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/anpr")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "anpr"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "anpr"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("models_dir", defaults.ModelsDir)
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)
	l.v.SetDefault("metrics_addr", defaults.MetricsAddr)

	l.v.SetDefault("pipeline.arena_size", defaults.Pipeline.ArenaSize)
	l.v.SetDefault("pipeline.alphabet", defaults.Pipeline.Alphabet)
	l.v.SetDefault("pipeline.warmup_iterations", defaults.Pipeline.WarmupIterations)

	l.v.SetDefault("pipeline.detect.model", defaults.Pipeline.Detect.Model)
	l.v.SetDefault("pipeline.detect.input_width", defaults.Pipeline.Detect.InputWidth)
	l.v.SetDefault("pipeline.detect.input_height", defaults.Pipeline.Detect.InputHeight)
	l.v.SetDefault("pipeline.detect.threshold", defaults.Pipeline.Detect.Threshold)

	l.v.SetDefault("pipeline.rectify.model", defaults.Pipeline.Rectify.Model)
	l.v.SetDefault("pipeline.rectify.input_size", defaults.Pipeline.Rectify.InputSize)
	l.v.SetDefault("pipeline.rectify.output_width", defaults.Pipeline.Rectify.OutputWidth)
	l.v.SetDefault("pipeline.rectify.output_height", defaults.Pipeline.Rectify.OutputHeight)
	l.v.SetDefault("pipeline.rectify.margin", defaults.Pipeline.Rectify.Margin)
	l.v.SetDefault("pipeline.rectify.threshold", defaults.Pipeline.Rectify.Threshold)

	l.v.SetDefault("pipeline.recognize.model", defaults.Pipeline.Recognize.Model)
	l.v.SetDefault("pipeline.recognize.input_width", defaults.Pipeline.Recognize.InputWidth)
	l.v.SetDefault("pipeline.recognize.input_height", defaults.Pipeline.Recognize.InputHeight)
}
