// Package source defines the record ingestion contract for the pipeline
// driver. Sources own all I/O; the core components never block on it.
package source

import (
	"context"

	"github.com/featuremill/featuremill/internal/domain/record"
)

// Source yields raw records from a data split.
// Next returns io.EOF when the split is exhausted.
type Source interface {
	Next(ctx context.Context) (record.Record, error)
	Close() error
}
