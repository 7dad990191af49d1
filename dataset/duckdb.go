package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DefaultCSVTable is the table a CSV file is loaded into.
const DefaultCSVTable = "dataset"

func init() {
	Register("csv", openCSV)
	Register("duckdb", openDuckDB)
}

// OpenDuckDB opens a DuckDB database. Use ":memory:" or "" for an in-memory
// database.
func OpenDuckDB(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	return db, nil
}

// LoadCSV loads a CSV file with a header row into table, inferring the
// schema. Empty cells become NULL.
func LoadCSV(ctx context.Context, db *sql.DB, table, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		quoteQualified(table),
		strings.ReplaceAll(absPath, "'", "''"),
	)

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV %s: %w", filePath, err)
	}
	return nil
}

// OpenCSV loads a CSV file into an in-memory DuckDB table and returns a
// source over it.
func OpenCSV(ctx context.Context, filePath string, opts ...TableOption) (*TableSource, error) {
	db, err := OpenDuckDB(ctx, ":memory:")
	if err != nil {
		return nil, err
	}
	if err := LoadCSV(ctx, db, DefaultCSVTable, filePath); err != nil {
		_ = db.Close()
		return nil, err
	}

	opts = append(opts, withOwnedDB())
	src := NewTableSource(db, "csv", DefaultCSVTable, opts...)
	src.name = "csv:" + filepath.Base(filePath)
	return src, nil
}

func openCSV(ctx context.Context, cfg Config, logger *slog.Logger) (*TableSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv source requires a path")
	}
	return OpenCSV(ctx, cfg.Path, WithLogger(logger))
}

func openDuckDB(ctx context.Context, cfg Config, logger *slog.Logger) (*TableSource, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("duckdb source requires a table")
	}
	db, err := OpenDuckDB(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	return NewTableSource(db, "duckdb", cfg.Table, WithLogger(logger), withOwnedDB()), nil
}
