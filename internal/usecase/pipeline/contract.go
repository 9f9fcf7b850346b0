package pipeline

import (
	"context"

	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/source"
)

// SplitInput names one data split and knows how to open a fresh reader over
// it. The driver reads each split twice: once for statistics, once for the
// transform pass.
type SplitInput struct {
	Name string
	Open func(ctx context.Context) (source.Source, error)
}

// Sink receives transformed records for one split.
type Sink interface {
	Write(t record.Transformed) error
	Close() error
}

// SinkFactory opens the output sink for a split. A nil factory discards
// transformed records (statistics/validation-only runs).
type SinkFactory func(split string) (Sink, error)
