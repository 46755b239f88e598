// Package config loads engine settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Limits bounds the work done for one render.
type Limits struct {
	MaxDepth            int `yaml:"max_depth" json:"max_depth"`
	MaxStringLength     int `yaml:"max_string_length" json:"max_string_length"`
	MaxChildren         int `yaml:"max_children" json:"max_children"`
	MaxTreeDepth        int `yaml:"max_tree_depth" json:"max_tree_depth"`
	MaxInterpreterSteps int `yaml:"max_interpreter_steps" json:"max_interpreter_steps"`
	SummaryChildren     int `yaml:"summary_children" json:"summary_children"`
}

// Diagnostics levels.
const (
	DiagnosticsDisabled = "disabled"
	DiagnosticsErrors   = "errors"
	DiagnosticsVerbose  = "verbose"
)

// Config is the complete engine configuration.
type Config struct {
	Limits      Limits   `yaml:"limits" json:"limits"`
	Diagnostics string   `yaml:"diagnostics" json:"diagnostics"`
	Sources     []string `yaml:"sources" json:"sources"`
	Watch       bool     `yaml:"watch" json:"watch"`
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:            50,
		MaxStringLength:     250,
		MaxChildren:         10000,
		MaxTreeDepth:        100,
		MaxInterpreterSteps: 1000000,
		SummaryChildren:     3,
	}
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Limits:      DefaultLimits(),
		Diagnostics: DiagnosticsErrors,
	}
}

// Load reads a configuration file. Keys missing from the file keep their
// default values. Relative source paths are resolved against the file's
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config yaml: %w", err)
		}
	}

	dir := filepath.Dir(path)
	for i, src := range cfg.Sources {
		if !filepath.IsAbs(src) {
			cfg.Sources[i] = filepath.Join(dir, src)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every limit is positive and the diagnostics level is
// known.
func (c *Config) Validate() error {
	limits := map[string]int{
		"limits.max_depth":             c.Limits.MaxDepth,
		"limits.max_string_length":     c.Limits.MaxStringLength,
		"limits.max_children":          c.Limits.MaxChildren,
		"limits.max_tree_depth":        c.Limits.MaxTreeDepth,
		"limits.max_interpreter_steps": c.Limits.MaxInterpreterSteps,
		"limits.summary_children":      c.Limits.SummaryChildren,
	}
	for name, v := range limits {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	switch c.Diagnostics {
	case "", DiagnosticsDisabled, DiagnosticsErrors, DiagnosticsVerbose:
	default:
		return fmt.Errorf("diagnostics: unknown level %q", c.Diagnostics)
	}
	return nil
}

// Logger builds a zap logger for the configured diagnostics level.
func (c *Config) Logger() (*zap.Logger, error) {
	var level zapcore.Level
	switch c.Diagnostics {
	case DiagnosticsDisabled:
		return zap.NewNop(), nil
	case DiagnosticsVerbose:
		level = zapcore.DebugLevel
	default:
		level = zapcore.ErrorLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
