// Package csv reads records from header-driven CSV files.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/source"
)

// Compile-time check: Reader implements source.Source.
var _ source.Source = (*Reader)(nil)

// Reader streams CSV rows as records. The header row names the features;
// cell parsing follows the declared role: numeric/bucketized cells parse as
// floats, categorical/label cells stay strings. Empty cells read as missing.
// Columns absent from the spec pass through as string values so the
// statistics computer reports the mismatch through its own error taxonomy.
type Reader struct {
	r      *csv.Reader
	closer io.Closer
	spec   feature.Spec
	header []string
}

// Open creates a reader over a CSV file.
func Open(path string, spec feature.Spec) (*Reader, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	r, err := New(f, spec)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// New creates a reader over an already-open stream and consumes the header.
func New(rd io.Reader, spec feature.Spec) (*Reader, error) {
	cr := csv.NewReader(rd)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}
	return &Reader{r: cr, spec: spec, header: names}, nil
}

// Next reads one row. Returns io.EOF at end of input.
func (r *Reader) Next(ctx context.Context) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}

	row, err := r.r.Read()
	if err != nil {
		if err == io.EOF {
			return record.Record{}, io.EOF
		}
		return record.Record{}, fmt.Errorf("read csv row: %w", err)
	}

	values := make(map[string]record.Value, len(r.header))
	for i, name := range r.header {
		if i >= len(row) {
			values[name] = record.Missing()
			continue
		}
		v, err := r.parseCell(name, strings.TrimSpace(row[i]))
		if err != nil {
			return record.Record{}, err
		}
		values[name] = v
	}
	return record.New(r.header, values), nil
}

// parseCell converts one cell according to the feature's declared role.
// The conventional "?" placeholder also reads as missing.
func (r *Reader) parseCell(name, cell string) (record.Value, error) {
	if cell == "" || cell == "?" {
		return record.Missing(), nil
	}

	f, ok := r.spec.ByName(name)
	if !ok || !f.Role().TakesNumber() {
		return record.String(cell), nil
	}

	x, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return record.Value{}, fmt.Errorf("column %q: cannot parse %q as number: %w", name, cell, err)
	}
	return record.Number(x), nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
