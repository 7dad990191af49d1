package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/marcboeker/go-duckdb"
)

// TableSource reads a single table through database/sql. DuckDB, Postgres
// and SQLite all accept the ANSI double-quoted identifiers it emits.
type TableSource struct {
	db     *sql.DB
	driver string
	table  string
	name   string
	owned  bool // close db on Close
	cache  ValuesCache
	logger *slog.Logger

	schemaMu sync.Mutex
	columns  []string
}

// TableOption configures a TableSource.
type TableOption func(*TableSource)

// WithCache replaces the default in-memory values cache.
func WithCache(c ValuesCache) TableOption {
	return func(s *TableSource) {
		s.cache = c
	}
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(l *slog.Logger) TableOption {
	return func(s *TableSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// withOwnedDB makes Close also close the database handle.
func withOwnedDB() TableOption {
	return func(s *TableSource) {
		s.owned = true
	}
}

// NewTableSource wraps an open database handle. The caller keeps ownership
// of db unless the source was created by Open.
func NewTableSource(db *sql.DB, driver, table string, opts ...TableOption) *TableSource {
	s := &TableSource{
		db:     db,
		driver: driver,
		table:  table,
		cache:  NewInMemoryValuesCache(DefaultCacheConfig()),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns driver:table unless a name was set when the source was opened.
func (s *TableSource) Name() string {
	if s.name != "" {
		return s.name
	}
	return s.driver + ":" + s.table
}

// DB exposes the underlying handle, e.g. for loading fixtures.
func (s *TableSource) DB() *sql.DB {
	return s.db
}

// Close releases the database handle when the source owns it.
func (s *TableSource) Close() error {
	s.cache.Invalidate()
	if s.owned && s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *TableSource) RowCount(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteQualified(s.table)) //nolint:gosec // identifiers are quoted
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count rows of %s: %w", ErrUnreadable, s.table, err)
	}
	return int(n), nil
}

// Columns reads the schema with a zero-row query. Only a successful read is
// cached; a failed or cancelled one is retried on the next call.
func (s *TableSource) Columns(ctx context.Context) ([]string, error) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.columns != nil {
		return slices.Clone(s.columns), nil
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteQualified(s.table)) //nolint:gosec // identifiers are quoted
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: read schema of %s: %w", ErrUnreadable, s.table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: read schema of %s: %w", ErrUnreadable, s.table, err)
	}
	if cols == nil {
		cols = []string{}
	}
	s.columns = cols
	s.logger.Debug("table schema loaded", "table", s.table, "columns", len(cols))
	return slices.Clone(cols), nil
}

func (s *TableSource) ColumnValues(ctx context.Context, name string) ([]any, error) {
	if vals, ok := s.cache.Get(name); ok {
		return vals, nil
	}

	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cols, name) {
		return nil, &MissingColumnError{Column: name, Available: cols}
	}

	query := fmt.Sprintf("SELECT %s FROM %s", quoteIdent(name), quoteQualified(s.table)) //nolint:gosec // identifiers are quoted
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: read column %q: %w", ErrUnreadable, name, err)
	}
	defer func() { _ = rows.Close() }()

	var vals []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: scan column %q: %w", ErrUnreadable, name, err)
		}
		vals = append(vals, normalizeValue(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate column %q: %w", ErrUnreadable, name, err)
	}

	s.cache.Set(name, vals)
	return vals, nil
}

// normalizeValue turns driver byte slices into strings and DECIMAL values
// into float64 so values hash and compare consistently across drivers.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case duckdb.Decimal:
		if t.Value == nil {
			return nil
		}
		return t.Float64()
	}
	return v
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes each part of a schema-qualified table name.
func quoteQualified(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

var _ Source = (*TableSource)(nil)
