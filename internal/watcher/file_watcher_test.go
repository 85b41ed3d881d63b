package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher succeeds on a directory and fails on a missing one
// - Rapid writes to several files arrive as one sorted batch
// - A deleted file is reported in Removed
// - Files in a directory created after start are reported
// - Extension filtering is case-insensitive and drops other files
// - The ignore filter drops matching files and directories
// - Start rejects a nil handler and a second call
// - Stop is idempotent and safe to call concurrently, with or without Start

const testDebounce = 100 * time.Millisecond

// recorder collects delivered batches.
type recorder struct {
	mu      sync.Mutex
	batches []Changes
	fired   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) handle(c Changes) {
	r.mu.Lock()
	r.batches = append(r.batches, c)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder) wait(t *testing.T) Changes {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(3 * time.Second):
		t.Fatal("handler not called after timeout")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func (r *recorder) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-r.fired:
		t.Fatal("unexpected batch")
	case <-time.After(d):
	}
}

func startWatcher(t *testing.T, dir string, opts ...Option) *recorder {
	t.Helper()
	opts = append([]Option{WithDebounce(testDebounce)}, opts...)
	w, err := NewFileWatcher([]string{dir}, []string{".java"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	rec := newRecorder()
	require.NoError(t, w.Start(context.Background(), rec.handle))
	time.Sleep(50 * time.Millisecond)
	return rec
}

func TestNewFileWatcher(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, []string{".java"})
	require.NoError(t, err)
	require.NoError(t, w.Stop())

	w, err = NewFileWatcher([]string{filepath.Join(t.TempDir(), "nonexistent")}, []string{".java"})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_BatchesChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := startWatcher(t, dir)

	a := filepath.Join(dir, "A.java")
	b := filepath.Join(dir, "B.java")
	require.NoError(t, os.WriteFile(b, []byte("class B {}"), 0644))
	require.NoError(t, os.WriteFile(a, []byte("class A {}"), 0644))
	require.NoError(t, os.WriteFile(a, []byte("class A { }"), 0644))

	got := rec.wait(t)
	assert.Equal(t, []string{a, b}, got.Changed)
	assert.Empty(t, got.Removed)
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Gone.java")
	require.NoError(t, os.WriteFile(path, []byte("class Gone {}"), 0644))

	rec := startWatcher(t, dir)
	require.NoError(t, os.Remove(path))

	got := rec.wait(t)
	assert.Equal(t, []string{path}, got.Removed)
	assert.Empty(t, got.Changed)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := startWatcher(t, dir)

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(sub, "Nested.java")
	require.NoError(t, os.WriteFile(path, []byte("class Nested {}"), 0644))

	assert.Contains(t, rec.wait(t).Changed, path)
}

func TestFileWatcher_ExtensionFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	rec.expectNone(t, 3*testDebounce)

	upper := filepath.Join(dir, "Upper.JAVA")
	require.NoError(t, os.WriteFile(upper, []byte("class Upper {}"), 0644))
	assert.Equal(t, []string{upper}, rec.wait(t).Changed)
}

func TestFileWatcher_Ignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	build := filepath.Join(dir, "build")
	require.NoError(t, os.Mkdir(build, 0755))

	ignore := func(path string, isDir bool) bool {
		return strings.HasPrefix(path, build) || strings.HasSuffix(path, "Skip.java")
	}
	rec := startWatcher(t, dir, WithIgnore(ignore))

	require.NoError(t, os.WriteFile(filepath.Join(build, "Gen.java"), []byte("class Gen {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Skip.java"), []byte("class Skip {}"), 0644))
	rec.expectNone(t, 3*testDebounce)

	kept := filepath.Join(dir, "Kept.java")
	require.NoError(t, os.WriteFile(kept, []byte("class Kept {}"), 0644))
	assert.Equal(t, []string{kept}, rec.wait(t).Changed)
}

func TestFileWatcher_StartErrors(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, []string{".java"})
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	assert.Error(t, w.Start(context.Background(), nil))
	require.NoError(t, w.Start(context.Background(), func(Changes) {}))
	assert.Error(t, w.Start(context.Background(), func(Changes) {}))
}

func TestFileWatcher_ConcurrentStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start bool
	}{
		{"started", true},
		{"never started", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewFileWatcher([]string{t.TempDir()}, []string{".java"})
			require.NoError(t, err)
			if tt.start {
				require.NoError(t, w.Start(context.Background(), func(Changes) {}))
			}

			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, w.Stop())
				}()
			}
			wg.Wait()
		})
	}
}

func TestChanges_Empty(t *testing.T) {
	assert.True(t, Changes{}.Empty())
	assert.False(t, Changes{Removed: []string{"/a/B.java"}}.Empty())
}
