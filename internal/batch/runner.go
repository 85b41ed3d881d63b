// Package batch analyzes every source file under a directory in parallel and
// writes one output document per file. A failing file is recorded and never
// aborts the rest of the batch.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/mvp-joe/jstruct/internal/cache"
	"github.com/mvp-joe/jstruct/internal/extractor"
	"github.com/mvp-joe/jstruct/internal/output"
)

// DefaultWorkerMultiplier is applied to NumCPU when no worker count is set.
const DefaultWorkerMultiplier = 2

// Sink receives every successfully analyzed file in addition to the output
// document.
type Sink interface {
	Store(ctx context.Context, relPath string, result *extractor.AnalysisResult) error
	Remove(ctx context.Context, relPath string) error
}

// Failure is a per-file failure as recorded in the manifest.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Manifest summarizes one batch run.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Root       string    `json:"root"`
	Format     string    `json:"format"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Classes    int       `json:"classes"`
	Methods    int       `json:"methods"`
	CacheHits  int       `json:"cache_hits"`
	Failures   []Failure `json:"failures"`
}

// Runner is the batch entry point.
type Runner struct {
	discovery *Discovery
	analyzer  *extractor.Analyzer
	writer    *output.AtomicWriter
	logger    *slog.Logger
	workers   int
	cache     *cache.ResultCache
	sinks     []Sink

	progress   ProgressReporter
	progressMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for per-file diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithWorkers bounds the number of files analyzed at once. Zero or less
// means DefaultWorkerMultiplier × NumCPU.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithProgress sets the progress reporter.
func WithProgress(progress ProgressReporter) Option {
	return func(r *Runner) {
		if progress != nil {
			r.progress = progress
		}
	}
}

// WithCache serves unchanged file contents from c instead of re-analyzing.
func WithCache(c *cache.ResultCache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithSink adds a sink that receives every analyzed file.
func WithSink(sink Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sinks = append(r.sinks, sink)
		}
	}
}

// NewRunner creates a batch runner. Files come from discovery, are analyzed
// by analyzer and written by writer.
func NewRunner(discovery *Discovery, analyzer *extractor.Analyzer, writer *output.AtomicWriter, opts ...Option) *Runner {
	r := &Runner{
		discovery: discovery,
		analyzer:  analyzer,
		writer:    writer,
		logger:    slog.Default(),
		workers:   runtime.NumCPU() * DefaultWorkerMultiplier,
		progress:  &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run discovers and analyzes every file, then writes the manifest.
//
// The manifest is returned whenever discovery succeeded. If any file failed
// the error is an *Errors holding every failure; other errors mean the run
// itself could not complete.
func (r *Runner) Run(ctx context.Context) (*Manifest, error) {
	m := &Manifest{
		RunID:     uuid.NewString(),
		Root:      r.discovery.Root(),
		Format:    string(r.writer.Format()),
		StartedAt: time.Now().UTC(),
		Failures:  []Failure{},
	}

	files, err := r.discovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files in %s: %w", r.discovery.Root(), err)
	}
	r.report(func(p ProgressReporter) { p.OnDiscoveryComplete(len(files)) })
	r.logger.Info("discovered source files", "root", m.Root, "files", len(files), "run_id", m.RunID)

	errs := r.process(ctx, files, m)
	m.FinishedAt = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return m, err
	}

	if err := r.writer.WriteManifest(m); err != nil {
		return m, fmt.Errorf("failed to write manifest: %w", err)
	}
	r.report(func(p ProgressReporter) { p.OnComplete(m) })

	if errs.HasErrors() {
		return m, errs
	}
	return m, nil
}

// ProcessFiles analyzes the given root-relative files without discovery or
// a manifest. The returned *Errors is nil when every file succeeded.
func (r *Runner) ProcessFiles(ctx context.Context, relPaths []string) (*Manifest, *Errors) {
	m := &Manifest{
		RunID:     uuid.NewString(),
		Root:      r.discovery.Root(),
		Format:    string(r.writer.Format()),
		StartedAt: time.Now().UTC(),
		Failures:  []Failure{},
	}
	errs := r.process(ctx, relPaths, m)
	m.FinishedAt = time.Now().UTC()
	if !errs.HasErrors() {
		return m, nil
	}
	return m, errs
}

// RemoveFiles deletes the output documents of removed source files and
// tells every sink.
func (r *Runner) RemoveFiles(ctx context.Context, relPaths []string) error {
	errs := &Errors{}
	for _, relPath := range relPaths {
		if err := r.writer.RemoveDocument(relPath); err != nil {
			errs.Add(relPath, err)
			continue
		}
		for _, sink := range r.sinks {
			if err := sink.Remove(ctx, relPath); err != nil {
				errs.Add(relPath, fmt.Errorf("sink: %w", err))
			}
		}
		r.logger.Debug("removed analysis", "path", relPath)
	}
	if errs.HasErrors() {
		errs.sortByPath()
		return errs
	}
	return nil
}

// process analyzes files on a bounded pool and folds the outcomes into m.
func (r *Runner) process(ctx context.Context, relPaths []string, m *Manifest) *Errors {
	errs := &Errors{}
	var mu sync.Mutex

	m.Files += len(relPaths)
	r.report(func(pr ProgressReporter) { pr.OnFileProcessingStart(len(relPaths)) })

	p := pool.New().WithMaxGoroutines(r.workers)
	for _, relPath := range relPaths {
		p.Go(func() {
			defer r.report(func(pr ProgressReporter) { pr.OnFileProcessed(relPath) })

			if err := ctx.Err(); err != nil {
				errs.Add(relPath, err)
				return
			}

			result, hit, err := r.processFile(ctx, relPath)
			if err != nil {
				r.logger.Warn("failed to analyze file", "path", relPath, "error", err)
				errs.Add(relPath, err)
				return
			}

			mu.Lock()
			m.Succeeded++
			m.Classes += result.ClassCount()
			m.Methods += result.MethodCount()
			if hit {
				m.CacheHits++
			}
			mu.Unlock()
		})
	}
	p.Wait()

	errs.sortByPath()
	for _, fe := range errs.Errors {
		m.Failures = append(m.Failures, Failure{Path: fe.Path, Error: fe.Err.Error()})
	}
	m.Failed += len(errs.Errors)
	return errs
}

// processFile analyzes one file and hands the result to the writer and
// every sink. hit reports whether the result came from the cache.
func (r *Runner) processFile(ctx context.Context, relPath string) (result *extractor.AnalysisResult, hit bool, err error) {
	path := filepath.Join(r.discovery.Root(), filepath.FromSlash(relPath))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read source: %w", err)
	}

	var key string
	if r.cache != nil {
		key = cache.Key(data)
		result, hit = r.cache.Get(key)
	}

	if !hit {
		result, err = r.analyzer.AnalyzeNamed(ctx, relPath, data)
		if err != nil {
			return nil, false, err
		}
		if r.cache != nil {
			r.cache.Set(key, result)
		}
	}

	if _, err := r.writer.WriteDocument(relPath, result); err != nil {
		return nil, hit, err
	}

	for _, sink := range r.sinks {
		if err := sink.Store(ctx, relPath, result); err != nil {
			return nil, hit, fmt.Errorf("sink: %w", err)
		}
	}

	r.logger.Debug("analyzed file",
		"path", relPath,
		"classes", result.ClassCount(),
		"methods", result.MethodCount(),
		"cached", hit)
	return result, hit, nil
}

func (r *Runner) report(fn func(ProgressReporter)) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	fn(r.progress)
}
