package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

func init() {
	Register("postgres", openPostgres)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*TableSource, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres source requires a dsn")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("postgres source requires a table")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewTableSource(db, "postgres", cfg.Table, WithLogger(logger), withOwnedDB()), nil
}
