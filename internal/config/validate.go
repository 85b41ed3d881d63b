package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidMaxDepth indicates a negative nesting bound
	ErrInvalidMaxDepth = errors.New("invalid max depth")

	// ErrInvalidSpanStrategy indicates an unknown span strategy
	ErrInvalidSpanStrategy = errors.New("invalid span strategy")

	// ErrEmptyExtensions indicates an empty source extension allow-list
	ErrEmptyExtensions = errors.New("empty extension list")

	// ErrInvalidIgnorePattern indicates an empty ignore glob
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrEmptyOutputDir indicates a missing output directory
	ErrEmptyOutputDir = errors.New("empty output directory")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidDebounce indicates a negative watch debounce
	ErrInvalidDebounce = errors.New("invalid debounce")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAnalysis(&cfg.Analysis)...)
	errs = append(errs, validatePaths(&cfg.Paths)...)
	errs = append(errs, validateOutput(&cfg.Output)...)
	errs = append(errs, validateBatch(&cfg.Batch)...)

	return joinErrors(errs)
}

func validateAnalysis(cfg *AnalysisConfig) []error {
	var errs []error

	if cfg.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: max_depth cannot be negative, got %d", ErrInvalidMaxDepth, cfg.MaxDepth))
	}

	switch strings.ToLower(cfg.SpanStrategy) {
	case "", "auto", "direct", "token":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'auto', 'direct' or 'token', got '%s'", ErrInvalidSpanStrategy, cfg.SpanStrategy))
	}

	return errs
}

func validatePaths(cfg *PathsConfig) []error {
	var errs []error

	if len(cfg.NormalizedExtensions()) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one source extension required", ErrEmptyExtensions))
	}

	for i, pattern := range cfg.Ignore {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Errorf("%w: ignore[%d] is empty", ErrInvalidIgnorePattern, i))
		}
	}

	return errs
}

func validateOutput(cfg *OutputConfig) []error {
	var errs []error

	switch strings.ToLower(cfg.Format) {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'json' or 'yaml', got '%s'", ErrInvalidFormat, cfg.Format))
	}

	if strings.TrimSpace(cfg.Dir) == "" {
		errs = append(errs, fmt.Errorf("%w: output dir is required", ErrEmptyOutputDir))
	}

	return errs
}

func validateBatch(cfg *BatchConfig) []error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}
	if cfg.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.DebounceMS))
	}

	return errs
}

// validationError lists every problem found and unwraps to each of them.
type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &validationError{errs: errs}
	}
}
