package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the background scheduler in the foreground",
	Long: `Runs periodic collection for every configured scope at the interval
set in the config file. Blocks until interrupted. The scheduler must be
enabled in the [scheduler] config section.`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	if schedulerService == nil {
		return errors.New("scheduler service not configured")
	}
	if !schedulerCfg.Enabled {
		return errors.New("scheduler is disabled; set enabled = true in the [scheduler] config section")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cmd.Printf("Scheduler running, collecting every %s (Ctrl-C to stop)...\n", schedulerCfg.Interval)

	// Start blocks until the context ends or Stop is called; Stop waits
	// for in-flight runs.
	err := schedulerService.Start(ctx)
	stopErr := schedulerService.Stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("scheduler stop failed: %w", stopErr)
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
