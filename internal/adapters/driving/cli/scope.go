package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisPatten/haven-sub000/internal/adapters/driven/config/file"
	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage configured scopes",
	Long: `Inspect the scopes haven collects from. Scopes are configured in
the TOML config file; use "scope init" to write a starter config.`,
	RunE: runScopeList,
}

var scopeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured scopes",
	RunE:  runScopeList,
}

var scopeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long:  `Writes a commented starter config. Refuses to overwrite an existing file.`,
	RunE:  runScopeInit,
}

func init() {
	scopeCmd.AddCommand(scopeListCmd)
	scopeCmd.AddCommand(scopeInitCmd)
	rootCmd.AddCommand(scopeCmd)
}

func runScopeList(cmd *cobra.Command, _ []string) error {
	if scopeStore == nil {
		return errors.New("scope store not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scopes, err := scopeStore.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scopes: %w", err)
	}

	if len(scopes) == 0 {
		cmd.Println("No scopes configured. Run \"haven scope init\" to get started.")
		return nil
	}

	cmd.Println("Scopes:")
	for i := range scopes {
		cmd.Printf("  %s %s\n", scopeTitleStyle.Render(scopes[i].ID),
			dimStyle.Render(fmt.Sprintf("(%s)", scopes[i].Kind)))
		cmd.Printf("      source: %s\n", scopeSource(&scopes[i]))
		cmd.Printf("      direction: %s, batch size: %d\n",
			scopeDirection(&scopes[i]), scopeBatchSize(&scopes[i]))
	}
	return nil
}

func runScopeInit(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	if err := file.WriteDefault(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cmd.Printf("Wrote starter config to %s\n", path)
	return nil
}

func scopeSource(cfg *domain.ScopeConfig) string {
	switch {
	case cfg.Filesystem != nil:
		return cfg.Filesystem.Root
	case cfg.Maildir != nil:
		return cfg.Maildir.Path
	default:
		return "-"
	}
}

func scopeDirection(cfg *domain.ScopeConfig) domain.Direction {
	if cfg.Direction != "" {
		return cfg.Direction
	}
	return domain.DirectionDescending
}

func scopeBatchSize(cfg *domain.ScopeConfig) int {
	if cfg.BatchSize > 0 {
		return cfg.BatchSize
	}
	return engineCfg.BatchSize
}
