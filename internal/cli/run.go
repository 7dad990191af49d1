package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jadesonbruno/dataquality/catalog"
	"github.com/jadesonbruno/dataquality/dataset"
	"github.com/jadesonbruno/dataquality/report"
	"github.com/jadesonbruno/dataquality/rules"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	RunName     string
	OnlyFailing bool
	JSONOutput  bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [suite...]",
		Short: "Validate the configured source against one or more suites",
		Long: `Run every named suite against the configured source as one checkpoint.

All suites share one run name. Each result is printed and published to the
configured sinks. The exit code is 1 when any suite fails a critical rule
and 2 on errors. A failing sink is reported but does not change the exit
code.`,
		Example: `  # Validate a CSV file with the default suite
  dq run --source-type csv --source-path data/dataset.csv

  # Validate a postgres table against two suites
  dq run orders customers --source-type postgres --source-dsn "$DSN" --source-table public.orders

  # Print results as JSON
  dq run --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RunName, "run-name", "", "Run name (default: <prefix>_YYYYmmdd_HHMMSS)")
	cmd.Flags().String("run-name-prefix", "", "Prefix of generated run names")
	cmd.Flags().String("suite", "", "Suite to run when none is given as argument")
	cmd.Flags().BoolVar(&opts.OnlyFailing, "only-failing", false, "Only print failing rules")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Print results as JSON instead of tables")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	log := GetLogger(ctx)

	suiteNames := args
	if len(suiteNames) == 0 {
		name := cfg.Suite
		if name == "" {
			name = catalog.DefaultSuiteName
		}
		suiteNames = []string{name}
	}

	if cfg.Source.Type == "" {
		return fmt.Errorf("no source configured: set source.type in dq.yaml or use --source-type (available: %s)",
			strings.Join(dataset.ListSources(), ", "))
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := dataset.Open(ctx, cfg.Source, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to close source", "source", src.Name(), "error", err)
		}
	}()

	sinkOpts := sinkOptions{onlyFailing: opts.OnlyFailing}
	if !opts.JSONOutput {
		sinkOpts.console = cmd.OutOrStdout()
	}
	sinks, err := a.sinks(ctx, sinkOpts)
	if err != nil {
		return err
	}

	definitions := make([]rules.ValidationDefinition, 0, len(suiteNames))
	for _, name := range suiteNames {
		def, err := a.catalog.AddDefinition(name, name, src)
		if err != nil {
			return err
		}
		definitions = append(definitions, def)
	}

	checkpoint := &rules.Checkpoint{
		Name:          "cli",
		Definitions:   definitions,
		Sinks:         sinks,
		RunNamePrefix: cfg.RunNamePrefix,
		RunName:       opts.RunName,
		Engine:        a.catalog.Engine(),
	}

	res, err := checkpoint.Run(ctx)
	if res == nil {
		return err
	}
	if err != nil {
		log.Warn("some results could not be published", "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	if opts.JSONOutput {
		records := make([]report.Record, len(res.Results))
		for i, r := range res.Results {
			records[i] = report.NewRecord(r)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return err
		}
	} else if cfg.Docs.Enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "Data docs: %s\n", report.NewDocsSink(cfg.Docs.Dir, nil).IndexPath())
	}

	if !res.Success {
		return ErrValidationFailed
	}
	return nil
}
