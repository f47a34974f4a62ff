package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the project configuration directory.
const DirName = ".apisummarizer"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "APISUMMARIZER"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	// APISUMMARIZER_SUMMARIZE_WORKERS -> summarize.workers
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("summarize.workers")
	v.BindEnv("summarize.duplicates")
	v.BindEnv("summarize.mode")
	v.BindEnv("summarize.cache_size")

	v.BindEnv("output.format")
	v.BindEnv("output.path")
	v.BindEnv("output.hierarchy")

	v.BindEnv("storage.enabled")
	v.BindEnv("storage.path")
	v.BindEnv("storage.cache_location")

	v.BindEnv("log.level")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("inputs.include", defaults.Inputs.Include)
	v.SetDefault("inputs.exclude", defaults.Inputs.Exclude)
	v.SetDefault("inputs.entry_exclude", defaults.Inputs.EntryExclude)

	v.SetDefault("summarize.workers", defaults.Summarize.Workers)
	v.SetDefault("summarize.duplicates", defaults.Summarize.Duplicates)
	v.SetDefault("summarize.mode", defaults.Summarize.Mode)
	v.SetDefault("summarize.cache_size", defaults.Summarize.CacheSize)

	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.path", defaults.Output.Path)
	v.SetDefault("output.hierarchy", defaults.Output.Hierarchy)

	v.SetDefault("storage.enabled", defaults.Storage.Enabled)
	v.SetDefault("storage.path", defaults.Storage.Path)
	v.SetDefault("storage.cache_location", defaults.Storage.CacheLocation)

	v.SetDefault("log.level", defaults.Log.Level)
}

// LoadConfig loads configuration rooted at the current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
