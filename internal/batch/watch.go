package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mvp-joe/jstruct/internal/watcher"
)

// Watch re-analyzes files under the root as they change until ctx is done.
// Removed files have their output document deleted. It does not run an
// initial batch; call Run first.
func (r *Runner) Watch(ctx context.Context, opts ...watcher.Option) error {
	opts = append([]watcher.Option{
		watcher.WithLogger(r.logger),
		watcher.WithIgnore(r.discovery.IgnoreFunc()),
	}, opts...)

	w, err := watcher.NewFileWatcher([]string{r.discovery.Root()}, r.discovery.Extensions(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Stop()

	if err := w.Start(ctx, func(c watcher.Changes) { r.handleChanges(ctx, c) }); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	r.logger.Info("watching for changes", "root", r.discovery.Root())

	<-ctx.Done()
	return nil
}

// handleChanges applies one watcher batch: changed files are re-analyzed
// and removed files lose their document and sink rows.
func (r *Runner) handleChanges(ctx context.Context, changes watcher.Changes) {
	changed := r.relative(changes.Changed)
	removed := r.relative(changes.Removed)

	if len(changed) > 0 {
		m, errs := r.ProcessFiles(ctx, changed)
		attrs := []any{"files", m.Files, "succeeded", m.Succeeded, "cache_hits", m.CacheHits}
		if errs != nil {
			r.logger.Warn("re-analysis finished with failures", append(attrs, "failed", errs.Len(), "error", errs)...)
		} else {
			r.logger.Info("re-analyzed changed files", attrs...)
		}
	}

	if len(removed) > 0 {
		if err := r.RemoveFiles(ctx, removed); err != nil {
			r.logger.Warn("failed to remove analyses", "files", len(removed), "error", err)
		} else {
			r.logger.Info("removed analyses of deleted files", "files", len(removed))
		}
	}
}

// relative maps absolute watcher paths to root-relative slash paths,
// dropping files discovery would not have selected. Order is preserved.
func (r *Runner) relative(paths []string) []string {
	rels := make([]string, 0, len(paths))
	for _, path := range paths {
		relPath, err := filepath.Rel(r.discovery.Root(), path)
		if err != nil {
			continue
		}
		relPath = filepath.ToSlash(relPath)
		if r.discovery.Matches(relPath) {
			rels = append(rels, relPath)
		}
	}
	return rels
}
