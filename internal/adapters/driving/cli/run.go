package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driving"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

var (
	runSince     string
	runUntil     string
	runLimit     int
	runReset     bool
	runDirection string
	runWatch     bool
)

var runCmd = &cobra.Command{
	Use:   "run [scope-id]",
	Short: "Run collection for configured scopes",
	Long: `Runs one collection pass. With a scope ID, only that scope is
collected; otherwise every configured scope is collected in turn.

Only records outside the already-covered fences are fetched and submitted.
Use --since/--until to bound the window, --reset to discard fences for this
run, and --watch to keep running whenever the source signals changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollect,
}

func init() {
	runCmd.Flags().StringVar(&runSince, "since", "", "window start (RFC3339 or YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runUntil, "until", "", "window end (RFC3339 or YYYY-MM-DD)")
	runCmd.Flags().IntVarP(&runLimit, "limit", "n", 0, "cap submitted records (0 = unlimited)")
	runCmd.Flags().BoolVar(&runReset, "reset", false, "ignore existing fences for this run")
	runCmd.Flags().StringVar(&runDirection, "direction", "", "processing order: descending or ascending")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "keep watching the source and re-run on changes")
	rootCmd.AddCommand(runCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	if collectorService == nil {
		return errors.New("collector service not configured")
	}

	opts := driving.RunOptions{
		Limit: runLimit,
		Reset: runReset,
	}

	since, err := parseTimeFlag(runSince)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	opts.Since = since

	until, err := parseTimeFlag(runUntil)
	if err != nil {
		return fmt.Errorf("invalid --until: %w", err)
	}
	opts.Until = until

	if runDirection != "" {
		dir := domain.Direction(runDirection)
		if !dir.Valid() {
			return fmt.Errorf("invalid --direction %q: want descending or ascending", runDirection)
		}
		opts.Direction = dir
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) > 0 {
		opts.ScopeKey = args[0]
		if err := collectScope(ctx, cmd, opts); err != nil {
			return err
		}
		if runWatch {
			return watchScope(ctx, cmd, opts)
		}
		return nil
	}

	if runWatch {
		return errors.New("--watch requires a scope ID")
	}
	if scopeStore == nil {
		return errors.New("scope store not configured")
	}

	scopes, err := scopeStore.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scopes: %w", err)
	}
	if len(scopes) == 0 {
		cmd.Println("No scopes configured.")
		return nil
	}

	for i := range scopes {
		opts.ScopeKey = scopes[i].ID
		if err := collectScope(ctx, cmd, opts); err != nil {
			return err
		}
	}
	return nil
}

// collectScope runs one scope to completion, streaming progress to the
// terminal.
func collectScope(ctx context.Context, cmd *cobra.Command, opts driving.RunOptions) error {
	cmd.Printf("Collecting %s...\n", opts.ScopeKey)

	opts.Progress = func(p driving.Progress) {
		cmd.Printf("\r  scanned %d  matched %d  submitted %d", p.Scanned, p.Matched, p.Submitted)
	}

	stats, err := collectorService.Run(ctx, opts)
	if stats != nil && stats.Scanned > 0 {
		cmd.Println()
	}
	if err != nil {
		return fmt.Errorf("run failed for scope %s: %w", opts.ScopeKey, err)
	}

	cmd.Printf("Scope %s: %d submitted, %d skipped, %d errors.\n",
		opts.ScopeKey, stats.Submitted, stats.Skipped, stats.Errors)
	return nil
}

// watchScope re-runs the scope whenever its source signals a change, until
// interrupted.
func watchScope(ctx context.Context, cmd *cobra.Command, opts driving.RunOptions) error {
	if adapterFactory == nil || scopeStore == nil {
		return errors.New("watch mode not configured")
	}

	cfg, err := scopeStore.Get(ctx, opts.ScopeKey)
	if err != nil {
		return fmt.Errorf("failed to load scope %s: %w", opts.ScopeKey, err)
	}

	adapter, err := adapterFactory.Create(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("failed to create adapter for scope %s: %w", opts.ScopeKey, err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			logger.Warn("failed to close adapter for %s: %v", opts.ScopeKey, err)
		}
	}()

	watchable, ok := adapter.(driven.WatchableAdapter)
	if !ok {
		return fmt.Errorf("scope %s (%s) does not support watching", opts.ScopeKey, adapter.Kind())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	signals, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watch for scope %s: %w", opts.ScopeKey, err)
	}

	cmd.Printf("Watching %s for changes (Ctrl-C to stop)...\n", opts.ScopeKey)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if err := collectScope(ctx, cmd, opts); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// Keep watching; the source may recover.
				cmd.PrintErrf("watch run failed: %v\n", err)
			}
		}
	}
}

// parseTimeFlag accepts RFC3339 timestamps or plain dates.
func parseTimeFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", domain.ErrInvalidInput, value)
	}
	ts = ts.UTC()
	return &ts, nil
}
