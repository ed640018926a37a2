package config

import (
	"github.com/structscan/structscan/internal/detect"
)

// Config represents the complete structscan configuration.
// It can be loaded from .structscan/config.yml with environment variable
// overrides.
type Config struct {
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Walk   WalkConfig   `yaml:"walk" mapstructure:"walk"`
}

// OutputConfig controls where and how extraction results are written.
type OutputConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`         // CSV output file path
	PerType bool   `yaml:"per_type" mapstructure:"per_type"` // write one CSV per processor next to Path
}

// WalkConfig defines which files a directory scan visits.
type WalkConfig struct {
	IgnoreDirs     []string `yaml:"ignore_dirs" mapstructure:"ignore_dirs"`         // directory names to prune, added to the built-in set
	IgnorePatterns []string `yaml:"ignore_patterns" mapstructure:"ignore_patterns"` // glob patterns matched against relative paths
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path:    "structscan.csv",
			PerType: false,
		},
		Walk: WalkConfig{
			IgnoreDirs:     []string{},
			IgnorePatterns: []string{},
		},
	}
}

// EffectiveIgnoreDirs merges the built-in ignore set with configured extras.
func (c *Config) EffectiveIgnoreDirs() []string {
	return append(detect.DefaultIgnoreDirs(), c.Walk.IgnoreDirs...)
}
