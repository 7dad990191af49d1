package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jadesonbruno/dataquality/internal/server"
	"github.com/jadesonbruno/dataquality/report"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation HTTP API",
		Long: `Start the HTTP API: suite management, POST /api/v1/validate,
run history (with postgres.dsn) and Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	log := GetLogger(ctx)

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	if err := errors.Join(
		reg.Register(collectors.NewGoCollector()),
		reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
		server.RegisterLogCounters(reg),
	); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	sinks, err := a.sinks(ctx, sinkOptions{registry: reg})
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithSinks(sinks...),
		server.WithGatherer(reg),
		server.WithDefaultSource(cfg.Source),
		server.WithSources(cfg.Sources),
		server.WithRunNamePrefix(cfg.RunNamePrefix),
		server.WithLogger(log),
	}
	if a.db != nil {
		opts = append(opts, server.WithDB(a.db), server.WithHistory(report.NewPostgresSink(a.db)))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(a.catalog, opts...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
