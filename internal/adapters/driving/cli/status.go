package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

var (
	scopeTitleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStatusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStatusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var statusCmd = &cobra.Command{
	Use:   "status [scope-id]",
	Short: "Show scope coverage and run state",
	Long: `Shows each scope's fence coverage (the time ranges already
collected), whether a run is in flight, and the outcome of the last run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if scopeStore == nil || stateStore == nil {
		return errors.New("status services not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var scopes []domain.ScopeConfig
	if len(args) > 0 {
		cfg, err := scopeStore.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load scope %s: %w", args[0], err)
		}
		scopes = []domain.ScopeConfig{*cfg}
	} else {
		var err error
		scopes, err = scopeStore.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list scopes: %w", err)
		}
	}

	if len(scopes) == 0 {
		cmd.Println("No scopes configured.")
		return nil
	}

	for i := range scopes {
		if i > 0 {
			cmd.Println()
		}
		if err := printScopeStatus(ctx, cmd, &scopes[i]); err != nil {
			return err
		}
	}
	return nil
}

func printScopeStatus(ctx context.Context, cmd *cobra.Command, cfg *domain.ScopeConfig) error {
	state, err := stateStore.Load(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to load state for scope %s: %w", cfg.ID, err)
	}

	cmd.Printf("%s %s\n", scopeTitleStyle.Render(cfg.DisplayName()),
		dimStyle.Render(fmt.Sprintf("(%s, %s)", cfg.Kind, cfg.ID)))

	if collectorService != nil {
		status, err := collectorService.Status(ctx, cfg.ID)
		if err == nil && status != nil && status.Running {
			cmd.Printf("  %s  scanned %d, submitted %d\n",
				warnStatusStyle.Render("running"),
				status.Stats.Scanned, status.Stats.Submitted)
		}
	}

	fences := state.Fences.Normalized()
	if len(fences) == 0 {
		cmd.Printf("  coverage: %s\n", dimStyle.Render("none"))
	} else {
		span, _ := fences.Span()
		cmd.Printf("  coverage: %d range(s), %s to %s\n", len(fences),
			formatTime(span.Earliest), formatTime(span.Latest))
		for _, f := range fences {
			cmd.Printf("    %s  %s to %s\n", dimStyle.Render("-"),
				formatTime(f.Earliest), formatTime(f.Latest))
		}
	}

	if state.LastRun != nil {
		last := state.LastRun
		cmd.Printf("  last run: %s at %s  (%d submitted, %d skipped, %d errors)\n",
			renderStatus(last.Status), formatTime(last.EndedAt),
			last.Stats.Submitted, last.Stats.Skipped, last.Stats.Errors)
	} else {
		cmd.Printf("  last run: %s\n", dimStyle.Render("never"))
	}
	return nil
}

func renderStatus(status domain.RunStatus) string {
	s := string(status)
	switch status {
	case domain.RunStatusOK:
		return okStatusStyle.Render(s)
	case domain.RunStatusPartial, domain.RunStatusCancelled:
		return warnStatusStyle.Render(s)
	case domain.RunStatusFailed:
		return errStatusStyle.Render(s)
	default:
		return s
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04:05")
}
