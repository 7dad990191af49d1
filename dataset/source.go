// Package dataset provides read-only tabular data sources for validation runs.
//
// A Source exposes the row count, the column set and the values of a single
// column. Sources are owned by the caller and borrowed by the engine for the
// duration of a run; the engine never mutates them. Implementations in this
// package are safe for concurrent reads.
package dataset

import (
	"context"
	"errors"
	"fmt"
)

// Source is the tabular data a suite is validated against.
type Source interface {
	// RowCount returns the number of rows.
	RowCount(ctx context.Context) (int, error)

	// Columns returns the column names in schema order.
	Columns(ctx context.Context) ([]string, error)

	// ColumnValues returns every value of the named column in row order.
	// Missing values are reported as nil. Returns *MissingColumnError if the
	// column does not exist.
	ColumnValues(ctx context.Context, name string) ([]any, error)
}

// ErrUnreadable marks failures to read the underlying data.
var ErrUnreadable = errors.New("dataset unreadable")

// MissingColumnError is returned when a column is not part of the schema.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found (available: %v)", e.Column, e.Available)
}

// IsMissingColumn reports whether err is a *MissingColumnError.
func IsMissingColumn(err error) bool {
	var mce *MissingColumnError
	return errors.As(err, &mce)
}

// Named is implemented by sources that can describe what they read, for
// reports and logs.
type Named interface {
	Name() string
}

// NameOf returns the source name, or its Go type when it has none.
func NameOf(src Source) string {
	if n, ok := src.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", src)
}
