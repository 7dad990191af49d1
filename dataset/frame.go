package dataset

import (
	"context"
	"fmt"
	"slices"
)

// Frame is an in-memory, column-oriented table.
type Frame struct {
	name    string
	columns []string
	values  map[string][]any
	rows    int
}

// NewFrame builds a frame from row-oriented records. Every record must have
// exactly one value per column.
func NewFrame(name string, columns []string, records [][]any) (*Frame, error) {
	f := &Frame{
		name:    name,
		columns: slices.Clone(columns),
		values:  make(map[string][]any, len(columns)),
		rows:    len(records),
	}

	for _, c := range columns {
		if _, dup := f.values[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		f.values[c] = make([]any, len(records))
	}

	for i, rec := range records {
		if len(rec) != len(columns) {
			return nil, fmt.Errorf("record %d has %d values, want %d", i, len(rec), len(columns))
		}
		for j, c := range columns {
			f.values[c][i] = rec[j]
		}
	}

	return f, nil
}

// FrameFromColumns builds a frame from column-oriented data. All columns
// must have the same length.
func FrameFromColumns(name string, columns []string, data map[string][]any) (*Frame, error) {
	f := &Frame{
		name:    name,
		columns: slices.Clone(columns),
		values:  make(map[string][]any, len(columns)),
		rows:    -1,
	}

	for _, c := range columns {
		vals, ok := data[c]
		if !ok {
			return nil, fmt.Errorf("no data for column %q", c)
		}
		if f.rows >= 0 && len(vals) != f.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c, len(vals), f.rows)
		}
		f.rows = len(vals)
		f.values[c] = slices.Clone(vals)
	}
	if f.rows < 0 {
		f.rows = 0
	}

	return f, nil
}

func (f *Frame) Name() string {
	return f.name
}

func (f *Frame) RowCount(context.Context) (int, error) {
	return f.rows, nil
}

func (f *Frame) Columns(context.Context) ([]string, error) {
	return slices.Clone(f.columns), nil
}

func (f *Frame) ColumnValues(_ context.Context, name string) ([]any, error) {
	vals, ok := f.values[name]
	if !ok {
		return nil, &MissingColumnError{Column: name, Available: slices.Clone(f.columns)}
	}
	return slices.Clone(vals), nil
}

var _ Source = (*Frame)(nil)
