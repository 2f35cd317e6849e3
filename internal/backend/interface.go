package backend

import (
	"context"

	"salesdash/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the reader and optional cleanup function
type BackendResult struct {
	Reader  sheets.RecordReader
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates record readers based on configuration
type Factory interface {
	// CreateReader builds the reader the dashboard serves from.
	CreateReader(ctx context.Context, config Config) (*BackendResult, error)
	// CreateLiveReader builds the reader the mirror worker copies from.
	CreateLiveReader(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	XLSXBackend   BackendType = "xlsx"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend, XLSXBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
