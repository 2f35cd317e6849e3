package sheets

import (
	"context"

	"salesdash/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordReader fetches the full sales table from a data source.
	RecordReader interface {
		// ReadTable returns the header row and every data row of the source.
		ReadTable(ctx context.Context) (core.Table, error)
		// SourceID identifies the source for caching and logging.
		SourceID() string
	}

	// Invalidator drops any cached copy of a source.
	Invalidator interface {
		Invalidate()
	}
)
