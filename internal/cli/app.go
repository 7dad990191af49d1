package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jadesonbruno/dataquality/catalog"
	"github.com/jadesonbruno/dataquality/internal/config"
	"github.com/jadesonbruno/dataquality/report"
	"github.com/jadesonbruno/dataquality/rules"

	_ "github.com/lib/pq"
)

// app holds what the commands share: the catalog with every suite loaded
// and, when postgres.dsn is set, the database behind it.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	catalog *catalog.Catalog
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var store rules.SuiteStore
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		a.db = db
		store = rules.NewPostgresSuiteStore(db)
	}

	a.catalog = catalog.New(store,
		catalog.WithLogger(logger),
		catalog.WithEngine(rules.NewEngine(rules.WithLogger(logger))),
	)

	if _, err := os.Stat(cfg.SuitesDir); err == nil {
		if _, err := a.catalog.LoadDir(cfg.SuitesDir); err != nil {
			a.Close()
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		a.Close()
		return nil, fmt.Errorf("failed to read suites directory: %w", err)
	}

	if _, err := a.catalog.GetOrCreateSuite(catalog.DefaultSuiteName, catalog.BuildDefaultSuite); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// sinkOptions selects the sinks a command publishes to on top of the
// configured ones.
type sinkOptions struct {
	console     io.Writer
	onlyFailing bool
	registry    prometheus.Registerer
}

// sinks builds the configured sinks: data docs, S3, PostgreSQL history and,
// with a registry, Prometheus metrics.
func (a *app) sinks(ctx context.Context, opts sinkOptions) ([]rules.Sink, error) {
	var sinks []rules.Sink

	if opts.console != nil {
		var consoleOpts []report.ConsoleOption
		if opts.onlyFailing {
			consoleOpts = append(consoleOpts, report.OnlyFailing())
		}
		sinks = append(sinks, report.NewConsoleSink(opts.console, consoleOpts...))
	}
	if a.cfg.Docs.Enabled {
		sinks = append(sinks, report.NewDocsSink(a.cfg.Docs.Dir, a.logger))
	}
	if a.cfg.S3.Bucket != "" {
		s3Sink, err := report.NewS3Sink(ctx, a.cfg.S3)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3Sink)
	}
	if a.db != nil {
		sinks = append(sinks, report.NewPostgresSink(a.db))
	}
	if opts.registry != nil && a.cfg.Metrics.Enabled {
		sinks = append(sinks, report.NewMetricsSink(opts.registry))
	}
	return sinks, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}

// loadApp builds the app from the command context.
func loadApp(ctx context.Context) (*app, error) {
	return newApp(ctx, GetConfig(ctx), GetLogger(ctx))
}
