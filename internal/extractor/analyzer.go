// Package extractor builds a nested structural model of Java source:
// classes, inner classes, methods and constructors with their modifiers,
// annotations, inheritance, parameters, documentation comments, invoked
// method names and verbatim source text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/mvp-joe/jstruct/internal/source"
	"github.com/mvp-joe/jstruct/internal/span"
	"github.com/mvp-joe/jstruct/internal/syntax"
)

// DefaultMaxDepth bounds class nesting. Top-level classes are depth 0.
const DefaultMaxDepth = 10

// ErrParseFailed is returned when the parser produces no syntax tree.
var ErrParseFailed = errors.New("failed to parse source")

// Analyzer extracts AnalysisResults from Java source. It holds no per-call
// state and is safe for concurrent use.
type Analyzer struct {
	parser   syntax.Parser
	logger   *slog.Logger
	maxDepth int
	strategy span.Strategy
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger for recoverable diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxDepth sets the deepest class nesting level that is extracted.
func WithMaxDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth >= 0 {
			a.maxDepth = depth
		}
	}
}

// WithSpanStrategy forces a span backend instead of choosing one from the
// tree's position support.
func WithSpanStrategy(strategy span.Strategy) Option {
	return func(a *Analyzer) {
		a.strategy = strategy
	}
}

// WithParser replaces the tree-sitter Java parser.
func WithParser(parser syntax.Parser) Option {
	return func(a *Analyzer) {
		if parser != nil {
			a.parser = parser
		}
	}
}

// New creates an analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:   syntax.NewJavaParser(),
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		strategy: span.Auto,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts the classes of one Java source text. Empty text yields
// an empty result.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	return a.analyze(ctx, []byte(text), a.logger)
}

// AnalyzeBytes is Analyze for raw UTF-8 bytes. The slice is not retained.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte) (*AnalysisResult, error) {
	return a.analyze(ctx, data, a.logger)
}

// AnalyzeFile reads and analyzes one source file.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return a.AnalyzeNamed(ctx, path, data)
}

// AnalyzeNamed analyzes data that was read from path. The path only labels
// diagnostics.
func (a *Analyzer) AnalyzeNamed(ctx context.Context, path string, data []byte) (*AnalysisResult, error) {
	return a.analyze(ctx, data, a.logger.With("path", path))
}

func (a *Analyzer) analyze(ctx context.Context, data []byte, logger *slog.Logger) (*AnalysisResult, error) {
	if len(data) == 0 {
		return NewAnalysisResult(), nil
	}
	if !utf8.Valid(data) {
		logger.Warn("source is not valid UTF-8, spans may contain replacement characters")
	}

	buf := source.FromBytes(data)

	tree, err := a.parser.Parse(ctx, buf.Bytes())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	defer tree.Close()

	root := tree.Root()
	if root == nil {
		return nil, ErrParseFailed
	}
	if tree.HasErrors() {
		logger.Warn("source contains syntax errors, extracting what the parser recovered")
	}

	resolver, err := span.New(a.strategy, tree.Positions(), buf, logger)
	if err != nil {
		return nil, err
	}

	e := &declExtractor{
		buf:      buf,
		spans:    resolver,
		logger:   logger,
		maxDepth: a.maxDepth,
	}
	return &AnalysisResult{Classes: e.classes(root, "", 0)}, nil
}
