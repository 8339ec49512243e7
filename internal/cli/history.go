package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgfastload/internal/journal"
	"github.com/vvka-141/pgfastload/internal/tui"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

var historyCmd = &cobra.Command{
	Use:   "history [run_id]",
	Short: "Show runs recorded in a journal",
	Long: `History lists the most recent runs recorded with load --journal.
Given a run id, it lists the outcome of every table of that run.

Examples:
  pgfastload history --journal runs.db
  pgfastload history --journal runs.db 0b6f1c2e-7f0a-4c3e-9d5b-2a1e8c7d6f40`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

type historyFlagValues struct {
	journal string
	limit   int
}

var historyFlags historyFlagValues

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.journal, "journal", "",
		"SQLite journal file written by load --journal")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 10,
		"Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := historyFlags.journal
	if path == "" {
		projectCfg, err := loadProjectConfig("", ".")
		if err != nil {
			return err
		}
		path = projectCfg.Load.Journal
	}
	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}
	return printHistory(cmd.Context(), cmd.OutOrStdout(), path, runID, historyFlags.limit)
}

func printHistory(ctx context.Context, w io.Writer, path, runID string, limit int) error {
	if path == "" {
		return fmt.Errorf("--journal is required (or load.journal in pgfastload.yaml): %w", fastload.ErrInvalidConfig)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("journal %s: %v: %w", path, err, fastload.ErrInvalidConfig)
	}

	j, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}
	defer j.Close()

	if runID != "" {
		tables, err := j.Tables(ctx, runID)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			fmt.Fprintf(w, "No tables recorded for run %s\n", runID)
			return nil
		}
		fmt.Fprint(w, tui.RenderTableLoads(tables))
		return nil
	}

	runs, err := j.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	fmt.Fprint(w, tui.RenderRuns(runs))
	return nil
}
