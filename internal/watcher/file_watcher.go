// Package watcher reports debounced batches of changed source files.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes fires.
const DefaultDebounce = 500 * time.Millisecond

// relevantOps are the fsnotify operations that can change an analysis.
// Rename reports the old name; the new name arrives as Create.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Option configures a file watcher.
type Option func(*fileWatcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(fw *fileWatcher) {
		if d > 0 {
			fw.debounce = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(logger *slog.Logger) Option {
	return func(fw *fileWatcher) {
		if logger != nil {
			fw.logger = logger
		}
	}
}

// WithIgnore skips paths for which ignore returns true. It is consulted for
// directories before they are watched and for every file event.
func WithIgnore(ignore func(path string, isDir bool) bool) Option {
	return func(fw *fileWatcher) {
		fw.ignore = ignore
	}
}

type fileWatcher struct {
	fsw        *fsnotify.Watcher
	extensions map[string]struct{}
	ignore     func(path string, isDir bool) bool
	logger     *slog.Logger
	debounce   time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewFileWatcher watches every directory under roots. extensions selects the
// files that are reported (e.g. []string{".java"}) and is matched
// case-insensitively.
func NewFileWatcher(roots []string, extensions []string, opts ...Option) (FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		fsw:        fsw,
		extensions: make(map[string]struct{}, len(extensions)),
		logger:     slog.Default(),
		debounce:   DefaultDebounce,
		done:       make(chan struct{}),
	}
	for _, ext := range extensions {
		fw.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, opt := range opts {
		opt(fw)
	}

	for _, root := range roots {
		if err := fw.watchTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fw, nil
}

func (fw *fileWatcher) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("watcher: nil handler")
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return errors.New("watcher: already stopped")
	}
	if fw.started {
		return errors.New("watcher: already started")
	}
	fw.started = true

	ctx, fw.cancel = context.WithCancel(ctx)
	go fw.loop(ctx, handler)
	return nil
}

func (fw *fileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	fw.stopped = true
	started := fw.started
	fw.mu.Unlock()

	if started {
		fw.cancel()
		<-fw.done
	}
	return fw.fsw.Close()
}

// loop collects event paths and hands them to handler once no event has
// arrived for the debounce period.
func (fw *fileWatcher) loop(ctx context.Context, handler Handler) {
	defer close(fw.done)

	pending := make(map[string]struct{})
	timer := time.NewTimer(fw.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				fw.watchCreatedDir(event.Name)
			}
			if !fw.wants(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(fw.debounce)

		case <-timer.C:
			if changes := fw.resolve(pending); !changes.Empty() {
				handler(changes)
			}
			clear(pending)

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "error", err)
		}
	}
}

// resolve looks at each pending path as it is now.
func (fw *fileWatcher) resolve(pending map[string]struct{}) Changes {
	var changes Changes
	for path := range pending {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			changes.Removed = append(changes.Removed, path)
		case err != nil:
			fw.logger.Warn("failed to stat changed file", "path", path, "error", err)
		case info.Mode().IsRegular():
			changes.Changed = append(changes.Changed, path)
		}
	}
	sort.Strings(changes.Changed)
	sort.Strings(changes.Removed)
	return changes
}

func (fw *fileWatcher) wants(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	if _, ok := fw.extensions[strings.ToLower(filepath.Ext(event.Name))]; !ok {
		return false
	}
	return !fw.ignored(event.Name, false)
}

func (fw *fileWatcher) ignored(path string, isDir bool) bool {
	return fw.ignore != nil && fw.ignore(path, isDir)
}

// watchCreatedDir extends the watch to a directory that appeared after start.
func (fw *fileWatcher) watchCreatedDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || fw.ignored(path, true) {
		return
	}
	if err := fw.watchTree(path); err != nil {
		fw.logger.Warn("failed to watch new directory", "dir", path, "error", err)
	}
}

// watchTree adds root and every non-ignored directory below it.
func (fw *fileWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			fw.logger.Warn("error accessing path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && fw.ignored(path, true) {
			return filepath.SkipDir
		}
		if err := fw.fsw.Add(path); err != nil {
			fw.logger.Warn("failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
}
