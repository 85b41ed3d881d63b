package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentSuffix is appended to a source file's base name to form its
// output document name.
const DocumentSuffix = "_analysis"

// ManifestName is the run summary written next to the documents.
const ManifestName = "manifest.json"

// AtomicWriter writes documents under an output directory using the
// temp → rename pattern, so readers never observe a partial file.
// It is safe for concurrent use.
type AtomicWriter struct {
	outputDir string
	tempDir   string
	format    Format
}

// NewAtomicWriter creates the output directory and a clean temp directory.
func NewAtomicWriter(outputDir string, format Format) (*AtomicWriter, error) {
	tempDir := filepath.Join(outputDir, ".tmp")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Clean up stale temp files
	if err := os.RemoveAll(tempDir); err != nil {
		return nil, fmt.Errorf("failed to clean temp directory: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &AtomicWriter{
		outputDir: outputDir,
		tempDir:   tempDir,
		format:    format,
	}, nil
}

// Dir returns the output directory.
func (w *AtomicWriter) Dir() string {
	return w.outputDir
}

// Format returns the document encoding.
func (w *AtomicWriter) Format() Format {
	return w.format
}

// DocumentPath maps a source path relative to the batch root to its output
// document path: "pkg/Foo.java" → "<dir>/pkg/Foo_analysis.json".
func (w *AtomicWriter) DocumentPath(relPath string) string {
	rel := filepath.FromSlash(relPath)
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(w.outputDir, base+DocumentSuffix+w.format.Extension())
}

// WriteDocument encodes v and stores it at DocumentPath(relPath).
func (w *AtomicWriter) WriteDocument(relPath string, v any) (string, error) {
	data, err := Marshal(w.format, v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", relPath, err)
	}

	finalPath := w.DocumentPath(relPath)
	if err := w.writeAtomic(finalPath, data); err != nil {
		return "", err
	}
	return finalPath, nil
}

// RemoveDocument deletes the document for relPath. A missing document is
// not an error.
func (w *AtomicWriter) RemoveDocument(relPath string) error {
	if err := os.Remove(w.DocumentPath(relPath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove document for %s: %w", relPath, err)
	}
	return nil
}

// WriteManifest writes v as JSON to <dir>/manifest.json, whatever the
// document format.
func (w *AtomicWriter) WriteManifest(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return w.writeAtomic(filepath.Join(w.outputDir, ManifestName), data)
}

// ReadManifest decodes <dir>/manifest.json into v. It returns an error
// wrapping os.ErrNotExist when no manifest was written yet.
func (w *AtomicWriter) ReadManifest(v any) error {
	data, err := os.ReadFile(filepath.Join(w.outputDir, ManifestName))
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return nil
}

func (w *AtomicWriter) writeAtomic(finalPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", finalPath, err)
	}

	// Unique temp names let workers write concurrently.
	tempPath := filepath.Join(w.tempDir, uuid.New().String())
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Close removes the temp directory.
func (w *AtomicWriter) Close() error {
	return os.RemoveAll(w.tempDir)
}
