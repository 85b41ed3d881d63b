package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/jstruct/internal/cache"
	"github.com/mvp-joe/jstruct/internal/extractor"
	"github.com/mvp-joe/jstruct/internal/output"
	"github.com/mvp-joe/jstruct/internal/syntax"
	"github.com/mvp-joe/jstruct/internal/watcher"
)

// Test Plan for batch:
// - Discovery filters by extension case-insensitively, honors ignore globs
//   (including root-level "**/" patterns) and always skips .jstruct
// - Discovery rejects malformed ignore patterns
// - IgnoreFunc maps watcher paths back to root-relative patterns
// - Run analyzes every fixture, writes one document per file and a manifest
// - Run keeps going when a file fails and reports it through *Errors
// - Run with a cancelled context reports context.Canceled
// - A second run with a cache serves every file from it
// - Sinks receive every stored file and every removal
// - Progress callbacks see discovery, each file and completion
// - Watch re-analyzes new files and removes documents of deleted files
// - Errors formats one and many failures

const fixturesDir = "../../testdata/java"

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newRunner(t *testing.T, root string, analyzer *extractor.Analyzer, opts ...Option) (*Runner, *output.AtomicWriter) {
	t.Helper()

	discovery, err := NewDiscovery(root, []string{".java"}, []string{"target/**"})
	require.NoError(t, err)

	writer, err := output.NewAtomicWriter(filepath.Join(t.TempDir(), "out"), output.JSON)
	require.NoError(t, err)

	if analyzer == nil {
		analyzer = extractor.New()
	}
	opts = append([]Option{WithWorkers(4)}, opts...)
	return NewRunner(discovery, analyzer, writer, opts...), writer
}

// failingParser fails on sources that contain the marker and delegates
// everything else to the Java grammar.
type failingParser struct {
	marker string
	next   syntax.Parser
}

func (p failingParser) Parse(ctx context.Context, src []byte) (syntax.Tree, error) {
	if bytes.Contains(src, []byte(p.marker)) {
		return nil, errors.New("grammar rejected source")
	}
	return p.next.Parse(ctx, src)
}

// recordingSink remembers what it was asked to store and remove.
type recordingSink struct {
	mu      sync.Mutex
	stored  map[string]int
	removed []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{stored: make(map[string]int)}
}

func (s *recordingSink) Store(_ context.Context, relPath string, result *extractor.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[relPath] = result.ClassCount()
	return nil
}

func (s *recordingSink) Remove(_ context.Context, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, relPath)
	return nil
}

// countingReporter counts progress callbacks.
type countingReporter struct {
	discovered int
	started    int
	processed  []string
	completed  *Manifest
}

func (c *countingReporter) OnDiscoveryComplete(files int)        { c.discovered = files }
func (c *countingReporter) OnFileProcessingStart(totalFiles int) { c.started = totalFiles }
func (c *countingReporter) OnFileProcessed(relPath string)       { c.processed = append(c.processed, relPath) }
func (c *countingReporter) OnComplete(manifest *Manifest)        { c.completed = manifest }

func TestDiscovery_Discover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, rel := range []string{
		"a.java",
		"B.JAVA",
		"pkg/C.java",
		"pkg/notes.txt",
		"target/D.java",
		".jstruct/E.java",
		"gen/X.gen.java",
		"Y.gen.java",
	} {
		writeFile(t, root, rel, "class X {}")
	}

	d, err := NewDiscovery(root, []string{".JAVA"}, []string{"target/**", "**/*.gen.java"})
	require.NoError(t, err)
	assert.Equal(t, []string{".java"}, d.Extensions())

	files, err := d.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"B.JAVA", "a.java", "pkg/C.java"}, files)
}

func TestDiscovery_Matching(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d, err := NewDiscovery(root, []string{".java"}, []string{"build/**", "node_modules/**"})
	require.NoError(t, err)

	tests := []struct {
		path   string
		ignore bool
		match  bool
	}{
		{"Main.java", false, true},
		{"src/Main.java", false, true},
		{"Main.kt", false, false},
		{"build", true, false},
		{"build/Gen.java", true, false},
		{"node_modules/x/Y.java", true, false},
		{".jstruct", true, false},
		{".jstruct/config.yml", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ignore, d.ShouldIgnore(tt.path), "ShouldIgnore(%s)", tt.path)
		assert.Equal(t, tt.match, d.Matches(tt.path), "Matches(%s)", tt.path)
	}

	ignore := d.IgnoreFunc()
	assert.True(t, ignore(filepath.Join(root, "build"), true))
	assert.True(t, ignore(filepath.Join(root, "build", "Gen.java"), false))
	assert.False(t, ignore(filepath.Join(root, "src"), true))
	assert.False(t, ignore(root, true))
}

func TestDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewDiscovery(t.TempDir(), []string{".java"}, []string{"[unclosed"})
	assert.Error(t, err)
}

func TestRunner_RunFixtures(t *testing.T) {
	t.Parallel()

	progress := &countingReporter{}
	runner, writer := newRunner(t, fixturesDir, nil, WithProgress(progress))

	m, err := runner.Run(t.Context())
	require.NoError(t, err)

	files := []string{"Broken.java", "Counter.java", "Shapes.java", "nested/Outer.java"}
	assert.Equal(t, len(files), m.Files)
	assert.Equal(t, len(files), m.Succeeded)
	assert.Zero(t, m.Failed)
	assert.Empty(t, m.Failures)
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, "json", m.Format)
	assert.False(t, m.FinishedAt.Before(m.StartedAt))

	analyzer := extractor.New()
	var classes, methods int
	for _, rel := range files {
		want, err := analyzer.AnalyzeFile(t.Context(), filepath.Join(fixturesDir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		classes += want.ClassCount()
		methods += want.MethodCount()

		data, err := os.ReadFile(writer.DocumentPath(rel))
		require.NoError(t, err, rel)
		var got extractor.AnalysisResult
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, *want, got, rel)
	}
	assert.Equal(t, classes, m.Classes)
	assert.Equal(t, methods, m.Methods)

	var stored Manifest
	require.NoError(t, writer.ReadManifest(&stored))
	assert.Equal(t, m.RunID, stored.RunID)
	assert.Equal(t, m.Succeeded, stored.Succeeded)

	assert.Equal(t, len(files), progress.discovered)
	assert.Equal(t, len(files), progress.started)
	assert.ElementsMatch(t, files, progress.processed)
	assert.Same(t, m, progress.completed)
}

func TestRunner_FailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "Good.java", "class Good { void a() { b(); } }")
	writeFile(t, root, "pkg/Bad.java", "class Bad { /* FAIL_PARSE */ }")
	writeFile(t, root, "Other.java", "class Other {}")

	analyzer := extractor.New(extractor.WithParser(failingParser{marker: "FAIL_PARSE", next: syntax.NewJavaParser()}))
	runner, writer := newRunner(t, root, analyzer)

	m, err := runner.Run(t.Context())
	require.Error(t, err)
	require.NotNil(t, m)

	var errs *Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, 1, errs.Len())
	assert.ErrorIs(t, err, extractor.ErrParseFailed)

	var fe FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "pkg/Bad.java", fe.Path)

	assert.Equal(t, 3, m.Files)
	assert.Equal(t, 2, m.Succeeded)
	assert.Equal(t, 1, m.Failed)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, "pkg/Bad.java", m.Failures[0].Path)
	assert.Contains(t, m.Failures[0].Error, "grammar rejected source")

	assert.FileExists(t, writer.DocumentPath("Good.java"))
	assert.FileExists(t, writer.DocumentPath("Other.java"))
	assert.NoFileExists(t, writer.DocumentPath("pkg/Bad.java"))

	var stored Manifest
	require.NoError(t, writer.ReadManifest(&stored))
	assert.Equal(t, m.Failures, stored.Failures)
}

func TestRunner_Cancelled(t *testing.T) {
	t.Parallel()

	runner, _ := newRunner(t, fixturesDir, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	m, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, m)
	assert.Equal(t, m.Files, m.Failed)
}

func TestRunner_CacheAndSink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "A.java", "class A { void f() { g(); } }")
	writeFile(t, root, "pkg/B.java", "class B {} class C {}")

	results, err := cache.New(16)
	require.NoError(t, err)
	t.Cleanup(results.Close)

	sink := newRecordingSink()
	runner, writer := newRunner(t, root, nil, WithCache(results), WithSink(sink))

	first, err := runner.Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)

	second, err := runner.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, first.Classes, second.Classes)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Equal(t, map[string]int{"A.java": 1, "pkg/B.java": 2}, sink.stored)

	require.NoError(t, runner.RemoveFiles(t.Context(), []string{"pkg/B.java"}))
	assert.NoFileExists(t, writer.DocumentPath("pkg/B.java"))
	assert.FileExists(t, writer.DocumentPath("A.java"))
	assert.Equal(t, []string{"pkg/B.java"}, sink.removed)
}

func TestRunner_ProcessFilesMissing(t *testing.T) {
	t.Parallel()

	runner, _ := newRunner(t, t.TempDir(), nil)

	m, errs := runner.ProcessFiles(t.Context(), []string{"Nope.java"})
	require.NotNil(t, errs)
	assert.ErrorIs(t, errs, os.ErrNotExist)
	assert.Equal(t, 1, m.Failed)
	assert.Zero(t, m.Succeeded)
}

func TestRunner_Watch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "A.java", "class A {}")
	require.NoError(t, os.Mkdir(filepath.Join(root, "target"), 0755))

	runner, writer := newRunner(t, root, nil)
	_, err := runner.Run(t.Context())
	require.NoError(t, err)
	require.FileExists(t, writer.DocumentPath("A.java"))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- runner.Watch(ctx, watcher.WithDebounce(100*time.Millisecond))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(200 * time.Millisecond)

	writeFile(t, root, "target/Skip.java", "class Skip {}")
	writeFile(t, root, "B.java", "class B { void m() {} }")
	require.Eventually(t, func() bool {
		_, err := os.Stat(writer.DocumentPath("B.java"))
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "A.java")))
	require.Eventually(t, func() bool {
		_, err := os.Stat(writer.DocumentPath("A.java"))
		return errors.Is(err, os.ErrNotExist)
	}, 3*time.Second, 20*time.Millisecond)

	assert.NoFileExists(t, writer.DocumentPath("target/Skip.java"))
}

func TestErrors_Error(t *testing.T) {
	t.Parallel()

	errs := &Errors{}
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no errors", errs.Error())

	errs.Add("A.java", errors.New("boom"))
	assert.Equal(t, "A.java: boom", errs.Error())

	errs.Add("B.java", errors.New("bang"))
	assert.True(t, errs.HasErrors())
	assert.Equal(t, "2 files failed to process (first: A.java: boom)", errs.Error())
}
