package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

func TestScopeCmd_Use(t *testing.T) {
	assert.Equal(t, "scope", scopeCmd.Use)
}

func TestScopeCmd_ListEmpty(t *testing.T) {
	setupCLITest(t)

	out, err := executeCommand(t, "scope", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No scopes configured.")
	assert.Contains(t, out, "haven scope init")
}

func TestScopeCmd_ListsScopes(t *testing.T) {
	maildirScope := domain.ScopeConfig{
		ID:        "mail-work",
		Kind:      domain.ScopeKindMaildir,
		Name:      "Work mail",
		Maildir:   &domain.MaildirOptions{Path: "/home/u/Maildir"},
		Direction: domain.DirectionAscending,
		BatchSize: 25,
	}
	setupCLITest(t, testScope("docs"), maildirScope)

	out, err := executeCommand(t, "scope")

	require.NoError(t, err)
	assert.Contains(t, out, "docs")
	assert.Contains(t, out, "(filesystem)")
	assert.Contains(t, out, "/tmp/haven-cli-test")
	assert.Contains(t, out, "mail-work")
	assert.Contains(t, out, "(maildir)")
	assert.Contains(t, out, "/home/u/Maildir")
	assert.Contains(t, out, "direction: ascending, batch size: 25")
	// Engine defaults fill in unset tuning.
	assert.Contains(t, out, "direction: descending, batch size: 50")
}

func TestScopeCmd_InitWritesStarterConfig(t *testing.T) {
	setupCLITest(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := executeCommand(t, "--config", path, "scope", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote starter config to "+path)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.NotEmpty(t, data)
}

func TestScopeCmd_InitRefusesOverwrite(t *testing.T) {
	setupCLITest(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# existing\n"), 0o600))

	_, err := executeCommand(t, "--config", path, "scope", "init")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write config")
}

func TestScopeCmd_StoreNotConfigured(t *testing.T) {
	setupCLITest(t)
	scopeStore = nil

	_, err := executeCommand(t, "scope", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope store not configured")
}
