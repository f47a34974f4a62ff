// Package config loads apisummarizer settings from .apisummarizer/config.yml
// with APISUMMARIZER_* environment overrides.
//
// Priority (highest to lowest):
//  1. Environment variables (APISUMMARIZER_SUMMARIZE_WORKERS, ...)
//  2. Project config (.apisummarizer/config.yml or config.yaml)
//  3. Built-in defaults
package config

import (
	"runtime"

	"github.com/mvp-joe/apisummarizer/internal/cache"
	"github.com/mvp-joe/apisummarizer/internal/discovery"
	"github.com/mvp-joe/apisummarizer/internal/export"
)

// Run modes.
const (
	ModeFailFast   = "fail-fast"
	ModeBestEffort = "best-effort"
)

// Config represents the complete apisummarizer configuration.
type Config struct {
	Inputs    InputsConfig    `yaml:"inputs" mapstructure:"inputs"`
	Summarize SummarizeConfig `yaml:"summarize" mapstructure:"summarize"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputsConfig defines which files under directory roots are summarized.
type InputsConfig struct {
	Include      []string `yaml:"include" mapstructure:"include"`             // glob patterns relative to a root
	Exclude      []string `yaml:"exclude" mapstructure:"exclude"`             // glob patterns to skip
	EntryExclude []string `yaml:"entry_exclude" mapstructure:"entry_exclude"` // archive entries to skip
}

// SummarizeConfig controls a summarization run.
type SummarizeConfig struct {
	Workers    int    `yaml:"workers" mapstructure:"workers"`       // parallel parsers, 1 = sequential
	Duplicates string `yaml:"duplicates" mapstructure:"duplicates"` // "overwrite" or "reject"
	Mode       string `yaml:"mode" mapstructure:"mode"`             // "fail-fast" or "best-effort"
	CacheSize  int    `yaml:"cache_size" mapstructure:"cache_size"` // decoded classes kept in memory, 0 disables
}

// OutputConfig controls where the summary is written.
type OutputConfig struct {
	Format    string `yaml:"format" mapstructure:"format"`       // json, yaml or cbor
	Path      string `yaml:"path" mapstructure:"path"`           // empty writes to stdout
	Hierarchy string `yaml:"hierarchy" mapstructure:"hierarchy"` // optional hierarchy JSON file
}

// StorageConfig controls the SQLite catalog.
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Path          string `yaml:"path" mapstructure:"path"`                     // explicit catalog file
	CacheLocation string `yaml:"cache_location" mapstructure:"cache_location"` // Override default ~/.apisummarizer/cache
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Inputs: InputsConfig{
			Include:      append([]string(nil), discovery.DefaultInclude...),
			Exclude:      []string{},
			EntryExclude: append([]string(nil), discovery.DefaultEntryExclude...),
		},
		Summarize: SummarizeConfig{
			Workers:    runtime.NumCPU(),
			Duplicates: "overwrite",
			Mode:       ModeFailFast,
			CacheSize:  cache.DefaultDeclCacheSize,
		},
		Output: OutputConfig{
			Format: string(export.FormatJSON),
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DiscoveryConfig converts the inputs section for the discovery package.
func (c *Config) DiscoveryConfig() discovery.Config {
	return discovery.Config{
		Include:      c.Inputs.Include,
		Exclude:      c.Inputs.Exclude,
		EntryExclude: c.Inputs.EntryExclude,
	}
}

// BestEffort reports whether failing inputs are skipped instead of ending the run.
func (c *Config) BestEffort() bool {
	return c.Summarize.Mode == ModeBestEffort
}

// CatalogPath returns the configured catalog path, or the per-project path
// under the cache root when none is set.
func (c *Config) CatalogPath(projectPath string) (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	return cache.NewCache(c.Storage.CacheLocation).CatalogPath(projectPath)
}
