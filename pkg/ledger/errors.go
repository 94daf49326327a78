package ledger

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by storage operations after Close.
var ErrClosed = errors.New("ledger storage is closed")

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite", "sqlite3", "postgres"
	Operation string // "store", "query", "prune", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// ExportError represents a failure while rendering records or summaries.
type ExportError struct {
	Format string // "csv", "json"
	Rows   int    // rows written before the failure
	Cause  error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, rows=%d]: %v", e.Format, e.Rows, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, rows int, cause error) *ExportError {
	return &ExportError{Format: format, Rows: rows, Cause: cause}
}
