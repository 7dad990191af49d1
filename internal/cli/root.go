// Package cli provides the dq command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jadesonbruno/dataquality/internal/config"
	"github.com/jadesonbruno/dataquality/internal/logger"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Exit codes returned by Execute.
const (
	ExitOK               = 0
	ExitValidationFailed = 1
	ExitError            = 2
)

// ErrValidationFailed is returned by commands whose validation run did not
// succeed. It maps to ExitValidationFailed.
var ErrValidationFailed = errors.New("validation failed")

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "dq",
		Short: "dq - declarative data quality checks",
		Long: `dq validates tabular data against suites of declarative rules.

Suites are YAML files under suites_dir. Sources can be CSV files (loaded
through DuckDB), DuckDB, SQLite or PostgreSQL tables. Results are printed
and published to data docs, S3, Prometheus and PostgreSQL as configured.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help, completion and version
			switch cmd.Name() {
			case "help", "completion", "__complete":
				return nil
			case "version":
				if cmd.Parent() == cmd.Root() {
					return nil
				}
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logCfg := cfg.Log
			logCfg.Output = cmd.ErrOrStderr()
			log, err := logger.Setup(cmd.Context(), logCfg)
			if err != nil {
				return err
			}
			if cfg.ConfigFile != "" {
				log.Debug("using config file", "path", cfg.ConfigFile)
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./dq.yaml)")
	flags.String("suites-dir", "", "Directory of suite files")
	flags.String("source-type", "", "Source type (csv|duckdb|sqlite|postgres)")
	flags.String("source-path", "", "CSV or database file to validate")
	flags.String("source-table", "", "Table to validate")
	flags.String("source-dsn", "", "Connection string for postgres sources")
	flags.String("postgres-dsn", "", "PostgreSQL DSN for the suite store and run history")
	flags.String("log-level", "", "Log level (trace|debug|info|warn|error)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"trace", "debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewVersionCommand(Version))
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewSuitesCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())

	return rootCmd
}

// Execute runs the root command with os.Args and returns the process exit
// code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to flush logs: %v\n", err)
	}
	return code
}

func run(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrValidationFailed):
		return ExitValidationFailed
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		SuitesDir:     config.DefaultSuitesDir,
		RunNamePrefix: config.DefaultRunNamePrefix,
		Server:        config.ServerConfig{Addr: config.DefaultServerAddr},
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return logger.Discard()
}
