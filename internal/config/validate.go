package config

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/apisummarizer/internal/export"
	"github.com/mvp-joe/apisummarizer/internal/summarizer"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrEmptyInclude indicates no include patterns
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidDuplicates indicates an unknown duplicate policy
	ErrInvalidDuplicates = errors.New("invalid duplicate policy")

	// ErrInvalidMode indicates an unknown run mode
	ErrInvalidMode = errors.New("invalid run mode")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete. All problems
// are reported together.
func Validate(cfg *Config) error {
	return errors.Join(
		validateInputs(&cfg.Inputs),
		validateSummarize(&cfg.Summarize),
		validateOutput(&cfg.Output),
		validateLog(&cfg.Log),
	)
}

func validateInputs(cfg *InputsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}

	for _, group := range [][]string{cfg.Include, cfg.Exclude, cfg.EntryExclude} {
		for _, p := range group {
			if _, err := glob.Compile(p, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err))
			}
		}
	}

	return errors.Join(errs...)
}

func validateSummarize(cfg *SummarizeConfig) error {
	var errs []error

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if _, err := summarizer.ParseDuplicatePolicy(cfg.Duplicates); err != nil {
		errs = append(errs, fmt.Errorf("%w: must be 'overwrite' or 'reject', got '%s'", ErrInvalidDuplicates, cfg.Duplicates))
	}

	if cfg.Mode != ModeFailFast && cfg.Mode != ModeBestEffort {
		errs = append(errs, fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidMode, ModeFailFast, ModeBestEffort, cfg.Mode))
	}

	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	return errors.Join(errs...)
}

func validateOutput(cfg *OutputConfig) error {
	if _, err := export.ParseFormat(cfg.Format); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, cfg.Format)
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	if _, err := logrus.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}
	return nil
}
