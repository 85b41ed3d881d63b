package watcher

import "context"

// Changes is one debounced batch of file events. Paths are absolute and
// sorted. A path that still exists as a regular file when the batch fires
// is in Changed; one that is gone is in Removed.
type Changes struct {
	Changed []string
	Removed []string
}

// Empty reports whether the batch carries no paths.
func (c Changes) Empty() bool {
	return len(c.Changed) == 0 && len(c.Removed) == 0
}

// Handler receives each batch. Calls are serialized on the watch goroutine.
type Handler func(Changes)

// FileWatcher monitors a source tree and reports debounced changes.
type FileWatcher interface {
	// Start begins delivering batches to handler until ctx is done or Stop is called.
	Start(ctx context.Context, handler Handler) error

	// Stop ends the watch loop and releases the underlying watches. Safe to call more than once.
	Stop() error
}
