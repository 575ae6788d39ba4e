// Package errs defines the error taxonomy shared by the codec, the analysis
// routines and the vector store. Callers match categories with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch reports a buffer whose length disagrees with the declared shape.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDecompositionFailed reports an SVD that did not converge or produced no V.
	ErrDecompositionFailed = errors.New("decomposition failed")
	// ErrEngine reports a failure inside the ANN engine (add, remove, search, save, load, reserve).
	ErrEngine = errors.New("engine failure")
	// ErrLock reports a store whose lock can no longer be trusted (poisoned or closed).
	ErrLock = errors.New("lock failure")
	// ErrStorageIO reports a filesystem failure while persisting the index.
	ErrStorageIO = errors.New("storage i/o failure")
	// ErrNotFound reports a key the engine does not hold.
	ErrNotFound = errors.New("not found")
)

// ShapeError carries the expected and actual element counts of a rejected buffer.
type ShapeError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has %d values, expected %d", e.Field, e.Actual, e.Expected)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShapeMismatch }

// Shape returns a ShapeError for field.
func Shape(field string, expected, actual int) error {
	return &ShapeError{Field: field, Expected: expected, Actual: actual}
}

// EngineError wraps a failure returned by the ANN engine. Index is the
// position inside a batch, or -1 outside batch operations.
type EngineError struct {
	Op    string
	Index int
	Err   error
}

func (e *EngineError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("engine %s failed at batch index %d: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool { return target == ErrEngine }

// Engine wraps err as an EngineError outside a batch.
func Engine(op string, err error) error {
	return &EngineError{Op: op, Index: -1, Err: err}
}

// StorageError wraps a filesystem failure on Path.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageIO }

// Storage wraps err as a StorageError.
func Storage(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
