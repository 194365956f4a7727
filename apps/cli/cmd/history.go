package cmd

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/partest/packages/core/status"
	"github.com/abdul-hamid-achik/partest/packages/history"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag   int
	historyChangesFlag bool
	historyPruneFlag   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `Show runs recorded with run --history.

Examples:
  partest history --history runs.db
  partest history --history runs.db --changes
  partest history --history runs.db --prune 50`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyFlag, "history", "", "SQLite database written by run --history (env: PARTEST_HISTORY_DB)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 10, "Number of runs to show")
	historyCmd.Flags().BoolVar(&historyChangesFlag, "changes", false, "Show tests whose state changed between the last two runs")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", 0, "Delete all but this many of the newest runs")

	rootCmd.AddCommand(historyCmd)
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return exitErr(ExitUsageError, "no history database: pass --history or set PARTEST_HISTORY_DB")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return exitErr(ExitReportError, "opening history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyPruneFlag > 0 {
		removed, err := store.Prune(ctx, historyPruneFlag)
		if err != nil {
			return exitErr(ExitReportError, "%w", err)
		}
		fmt.Fprintf(out, "Pruned %d run(s)\n", removed)
		return nil
	}

	if historyChangesFlag {
		changes, err := store.Changes(ctx)
		if err != nil {
			return exitErr(ExitReportError, "%w", err)
		}
		if len(changes) == 0 {
			fmt.Fprintln(out, "No state changes")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Test", "Before", "After"})
		for _, c := range changes {
			before := "(new)"
			if c.From != status.Unset {
				before = c.From.String()
			}
			t.AppendRow(table.Row{c.Name, before, c.To.String()})
		}
		t.Render()
		return nil
	}

	runs, err := store.Recent(ctx, historyLimitFlag)
	if err != nil {
		return exitErr(ExitReportError, "%w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Passed", "Failed", "Panicked", "Skipped", "Pattern"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Started.Format(time.RFC3339),
			r.Duration.Round(time.Millisecond).String(),
			r.Passed, r.Failed, r.Panicked, r.Skipped,
			r.Pattern,
		})
	}
	t.Render()
	return nil
}
