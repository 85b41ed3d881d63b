// Package config loads jstruct configuration from defaults,
// .jstruct/config.yml and JSTRUCT_* environment variables.
package config

import (
	"runtime"
	"strings"
)

// Config represents the complete jstruct configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
}

// AnalysisConfig controls extraction.
type AnalysisConfig struct {
	MaxDepth     int    `yaml:"max_depth" mapstructure:"max_depth"`         // deepest nested class level extracted
	SpanStrategy string `yaml:"span_strategy" mapstructure:"span_strategy"` // "auto", "direct" or "token"
}

// PathsConfig defines which files a batch run picks up.
type PathsConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // e.g. [".java"]
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`         // glob patterns, relative to the batch root
}

// OutputConfig defines where results are written.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "yaml"
	SQLite string `yaml:"sqlite" mapstructure:"sqlite"` // optional database path
}

// BatchConfig tunes batch and watch runs.
type BatchConfig struct {
	Workers    int `yaml:"workers" mapstructure:"workers"`         // 0 means 2x NumCPU
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"` // watch mode quiet period
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxDepth:     10,
			SpanStrategy: "auto",
		},
		Paths: PathsConfig{
			Extensions: []string{".java"},
			Ignore: []string{
				".git/**",
				"target/**",
				"build/**",
				"out/**",
				"node_modules/**",
			},
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "json",
		},
		Batch: BatchConfig{
			Workers:    0,
			DebounceMS: 500,
		},
	}
}

// EffectiveWorkers resolves the worker count, expanding 0 to 2x NumCPU.
func (b BatchConfig) EffectiveWorkers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU() * 2
}

// NormalizedExtensions returns the extension allow-list lowercased, with a
// leading dot and without duplicates.
func (p PathsConfig) NormalizedExtensions() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(p.Extensions))
	for _, ext := range p.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !seen[ext] {
			seen[ext] = true
			out = append(out, ext)
		}
	}
	return out
}
