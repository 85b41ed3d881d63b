package batch

import (
	"fmt"
	"sort"
	"sync"
)

// FileError is the failure of a single source file.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Errors collects per-file failures of a batch. It is safe for concurrent
// use.
type Errors struct {
	Errors []FileError
	mu     sync.Mutex
}

// Add appends an error to the collection.
func (e *Errors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, FileError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *Errors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of failed files.
func (e *Errors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// sortByPath orders the failures so reports are stable across runs.
func (e *Errors) sortByPath() {
	e.mu.Lock()
	defer e.mu.Unlock()
	sort.Slice(e.Errors, func(i, j int) bool {
		return e.Errors[i].Path < e.Errors[j].Path
	})
}

// Error implements the error interface.
func (e *Errors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every file failure to errors.Is and errors.As.
func (e *Errors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}
