package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/partest/packages/core/filter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered tests",
	Long: `List every registered test with its level and whether the current
selection would run it. Unlike run --dry-run nothing is executed and the
process does not exit early.

Examples:
  partest list
  partest list -l 1 -r '^net'`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func init() {
	addSelectionFlags(listCmd)
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	f, err := filter.New(cfg.GetMinLevel(), cfg.Pattern)
	if err != nil {
		return &ExitError{Code: ExitPatternError, Err: err}
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Test", "Level", "Runs", "Reason"})

	eligible := 0
	for test := range suite.All() {
		reason := f.Reason(test)
		runs := "yes"
		note := ""
		if reason != filter.SkipNone {
			runs = "no"
			note = reason.String()
		} else {
			eligible++
		}
		t.AppendRow(table.Row{test.Name, test.Level, runs, note})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d registered", suite.Len()), "", fmt.Sprintf("%d eligible", eligible), ""})
	t.Render()

	return nil
}
