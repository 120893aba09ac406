package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <scope-id>",
	Short: "List recent runs for a scope",
	Long: `Lists recent collection runs for a scope, most recent first.
History is informational; fences, not history, decide what gets
re-processed.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyStore == nil {
		return errors.New("history store not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := historyStore.ListRuns(ctx, args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		cmd.Printf("No runs recorded for scope %s.\n", args[0])
		return nil
	}

	cmd.Printf("Runs for %s:\n\n", scopeTitleStyle.Render(args[0]))
	for i := range runs {
		r := &runs[i]
		duration := "-"
		if !r.EndedAt.IsZero() && !r.StartedAt.IsZero() {
			duration = r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		cmd.Printf("  %s  %-9s  %4d submitted  %3d errors  %8s\n",
			formatTime(r.StartedAt), renderStatus(r.Status),
			r.Stats.Submitted, r.Stats.Errors, duration)
		if r.Error != "" {
			cmd.Printf("      %s\n", dimStyle.Render(r.Error))
		}
	}
	return nil
}
