package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/jadesonbruno/dataquality/migrations"
)

// NewMigrateCommand creates the migrate command for the PostgreSQL schema.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema (suites and run history)",
		Long: `Apply or roll back the embedded schema migrations on postgres.dsn.

The schema holds stored suites, validation runs and rule outcomes.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrate(func(cmd *cobra.Command, m *migrate.Migrate, _ []string) error {
				err := m.Up()
				if errors.Is(err, migrate.ErrNoChange) {
					fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run (database is up to date)")
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrate(func(cmd *cobra.Command, m *migrate.Migrate, _ []string) error {
				if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("failed to rollback migrations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rollback completed successfully")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrate(func(cmd *cobra.Command, m *migrate.Migrate, _ []string) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to get version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d (dirty: %v)\n", version, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrate(func(cmd *cobra.Command, m *migrate.Migrate, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version number: %w", err)
				}
				if err := m.Force(version); err != nil {
					return fmt.Errorf("failed to force version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Forced version to: %d\n", version)
				return nil
			}),
		},
	)
	return cmd
}

// withMigrate opens the embedded migrations against postgres.dsn.
func withMigrate(fn func(*cobra.Command, *migrate.Migrate, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig(cmd.Context())
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required: set it in dq.yaml, DQ_POSTGRES_DSN or --postgres-dsn")
		}

		m, err := migrations.New(cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("failed to create migration instance: %w", err)
		}
		defer m.Close()

		GetLogger(cmd.Context()).Debug("running migrations", "command", cmd.Name())
		return fn(cmd, m, args)
	}
}
