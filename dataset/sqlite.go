package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	Register("sqlite", openSQLite)
}

// OpenSQLite opens a SQLite database file read-only, or an in-memory
// database for ":memory:".
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?mode=ro"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return db, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*TableSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite source requires a path")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("sqlite source requires a table")
	}

	db, err := OpenSQLite(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	return NewTableSource(db, "sqlite", cfg.Table, WithLogger(logger), withOwnedDB()), nil
}
