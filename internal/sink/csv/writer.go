// Package csv writes transformed records to CSV files.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/featuremill/featuremill/internal/domain/record"
)

// Writer streams transformed records to CSV. The header is taken from the
// first record's output names; every record of one run shares them since the
// transformer emits spec order.
type Writer struct {
	w      *csv.Writer
	closer io.Closer
	header []string
}

// Create creates a writer over a new CSV file, making parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("create csv: %w", err)
	}
	return &Writer{w: csv.NewWriter(f), closer: f}, nil
}

// New creates a writer over an already-open stream.
func New(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends one transformed record, emitting the header first.
func (w *Writer) Write(t record.Transformed) error {
	if w.header == nil {
		w.header = t.Names()
		if err := w.w.Write(w.header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	row := make([]string, len(w.header))
	for i, name := range w.header {
		v, ok := t.Get(name)
		if !ok {
			return fmt.Errorf("transformed record is missing output %q", name)
		}
		row[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
