// Package parquet reads records from parquet files, streaming row group by
// row group.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/source"
)

const rowBufferSize = 1000

// Compile-time check: Reader implements source.Source.
var _ source.Source = (*Reader)(nil)

// Reader streams parquet rows as records. Leaf columns are resolved by name
// against the feature spec; null cells read as missing values.
type Reader struct {
	file    *os.File
	pf      *parquet.File
	spec    feature.Spec
	columns map[int]string // leaf column index -> feature name

	groups []parquet.RowGroup
	gi     int
	rows   parquet.Rows
	buf    []parquet.Row
	bufLen int
	bufPos int
}

// Open creates a reader over a parquet file.
func Open(path string, spec feature.Spec) (*Reader, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	return &Reader{
		file:    f,
		pf:      pf,
		spec:    spec,
		columns: resolveColumns(pf, spec),
		groups:  pf.RowGroups(),
		buf:     make([]parquet.Row, rowBufferSize),
	}, nil
}

// resolveColumns maps leaf-level column indexes to declared feature names.
// Columns outside the spec are ignored; parquet files routinely carry more
// columns than a pipeline consumes.
func resolveColumns(pf *parquet.File, spec feature.Spec) map[int]string {
	out := make(map[int]string)
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		if spec.Has(path[0]) {
			out[i] = path[0]
		}
	}
	return out
}

// Next reads one row. Returns io.EOF when all row groups are exhausted.
func (r *Reader) Next(ctx context.Context) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return record.Record{}, err
	}

	for r.bufPos >= r.bufLen {
		if err := r.fill(); err != nil {
			return record.Record{}, err
		}
	}

	row := r.buf[r.bufPos]
	r.bufPos++
	return r.toRecord(row), nil
}

// fill advances to the next non-empty row buffer, moving across row groups.
func (r *Reader) fill() error {
	if r.rows == nil {
		if r.gi >= len(r.groups) {
			return io.EOF
		}
		r.rows = parquet.NewRowGroupReader(r.groups[r.gi])
		r.gi++
	}

	n, err := r.rows.ReadRows(r.buf)
	r.bufLen = n
	r.bufPos = 0
	if err != nil {
		if errors.Is(err, io.EOF) {
			_ = r.rows.Close()
			r.rows = nil
			if n == 0 {
				// Buffer empty and group done; the caller loops into the next group.
				return nil
			}
			return nil
		}
		return fmt.Errorf("read parquet rows: %w", err)
	}
	return nil
}

func (r *Reader) toRecord(row parquet.Row) record.Record {
	names := make([]string, 0, len(r.columns))
	values := make(map[string]record.Value, len(r.columns))

	// Keep spec declaration order for the record, not parquet column order.
	for _, f := range r.spec.Features() {
		names = append(names, f.Name())
		values[f.Name()] = record.Missing()
	}

	for _, v := range row {
		name, ok := r.columns[v.Column()]
		if !ok || v.IsNull() {
			continue
		}
		values[name] = convert(v, r.spec, name)
	}
	return record.New(names, values)
}

// convert maps a parquet value onto the declared role: numeric roles read
// any numeric physical type as float64, vocabulary roles read strings.
func convert(v parquet.Value, spec feature.Spec, name string) record.Value {
	f, _ := spec.ByName(name)
	if f.Role().TakesNumber() {
		switch v.Kind() {
		case parquet.Double, parquet.Float:
			return record.Number(v.Double())
		case parquet.Int32, parquet.Int64:
			return record.Number(float64(v.Int64()))
		default:
			// Physical type disagrees with the declared role; surface the raw
			// string so the statistics computer reports the mismatch.
			return record.String(v.String())
		}
	}
	return record.String(v.String())
}

// Close releases the row reader and underlying file.
func (r *Reader) Close() error {
	if r.rows != nil {
		_ = r.rows.Close()
		r.rows = nil
	}
	return r.file.Close()
}
