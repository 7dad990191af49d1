package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jadesonbruno/dataquality/catalog"
	"github.com/jadesonbruno/dataquality/rules"
)

// NewSuitesCommand creates the suites command and its subcommands.
func NewSuitesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suites",
		Short: "Inspect and scaffold suites",
	}
	cmd.AddCommand(newSuitesListCommand(), newSuitesShowCommand(), newSuitesInitCommand())
	return cmd
}

func newSuitesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			suites, err := a.catalog.Suites()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Suite", "Rules", "Kinds"})
			for _, s := range suites {
				t.AppendRow(table.Row{s.Name(), s.Len(), kindsOf(s)})
			}
			t.Render()
			return nil
		},
	}
}

func newSuitesShowCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show <suite>",
		Short: "Show the rules of a suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			suite, err := a.catalog.Suite(args[0])
			if err != nil {
				return err
			}

			if asYAML {
				data, err := catalog.MarshalSuite(suite)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.SetTitle(suite.Name())
			t.AppendHeader(table.Row{"#", "Rule", "Target", "Params", "Severity", "Notes"})
			for i, r := range suite.Rules() {
				t.AppendRow(table.Row{i + 1, string(r.Kind), r.Target(), formatParams(r.Params), string(r.Severity), r.Notes})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the suite as a suite file")
	return cmd
}

func newSuitesInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default suite file into suites_dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			path := filepath.Join(cfg.SuitesDir, catalog.DefaultSuiteName+".yaml")

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			suite := rules.NewSuite(catalog.DefaultSuiteName)
			if err := catalog.BuildDefaultSuite(suite); err != nil {
				return err
			}
			if err := catalog.WriteSuiteFile(path, suite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rules)\n", path, suite.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func kindsOf(s *rules.Suite) string {
	seen := make(map[rules.Kind]bool)
	var kinds []string
	for _, r := range s.Rules() {
		if !seen[r.Kind] {
			seen[r.Kind] = true
			kinds = append(kinds, string(r.Kind))
		}
	}
	return strings.Join(kinds, ", ")
}

func formatParams(p rules.Params) string {
	if len(p) == 0 {
		return "-"
	}
	var parts []string
	for _, k := range []string{rules.ParamMin, rules.ParamMax, rules.ParamExpression} {
		if v, ok := p[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
