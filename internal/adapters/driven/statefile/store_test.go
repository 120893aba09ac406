package statefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

func at(min int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func TestStoreRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	state := domain.ScopeState{
		Version: domain.ScopeStateVersion,
		Fences: domain.FenceSet{
			{Earliest: at(1), Latest: at(5)},
			{Earliest: at(10), Latest: at(12)},
		},
		LastRun: &domain.RunSummary{
			Status:    domain.RunStatusOK,
			StartedAt: at(20),
			EndedAt:   at(21),
			Stats:     domain.RunStats{Submitted: 7},
		},
	}
	require.NoError(t, store.Save(ctx, "mail-work", state))

	loaded, err := store.Load(ctx, "mail-work")
	require.NoError(t, err)
	assert.Equal(t, state.Fences, loaded.Fences)
	require.NotNil(t, loaded.LastRun)
	assert.Equal(t, domain.RunStatusOK, loaded.LastRun.Status)
	assert.Equal(t, 7, loaded.LastRun.Stats.Submitted)
}

func TestStoreLoadAbsent(t *testing.T) {
	store := New(t.TempDir())

	state, err := store.Load(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.Empty(t, state.Fences)
	assert.Equal(t, domain.ScopeStateVersion, state.Version)
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600))

	state, err := store.Load(ctx, "broken")
	require.NoError(t, err, "corruption never aborts a run")
	assert.Empty(t, state.Fences)
}

func TestStoreLoadLegacySchema(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	legacy := []byte(`{"version": 0, "fences": [{"earliest": "2026-01-01T00:01:00Z", "latest": "2026-01-01T00:05:00Z"}]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), legacy, 0o600))

	state, err := store.Load(context.Background(), "old")
	require.NoError(t, err)
	assert.Empty(t, state.Fences, "unknown schema versions start from empty coverage")
}

func TestStoreLoadNormalizesFences(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	// Overlapping fences straight from a hand-edited file.
	require.NoError(t, store.Save(ctx, "messy", domain.ScopeState{
		Fences: domain.FenceSet{
			{Earliest: at(3), Latest: at(8)},
			{Earliest: at(1), Latest: at(4)},
		},
	}))

	state, err := store.Load(ctx, "messy")
	require.NoError(t, err)
	require.Len(t, state.Fences, 1)
	assert.Equal(t, at(1), state.Fences[0].Earliest)
	assert.Equal(t, at(8), state.Fences[0].Latest)
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, "scope", domain.ScopeState{
			Fences: domain.FenceSet{{Earliest: at(0), Latest: at(i + 1)}},
		}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scope.json", entries[0].Name())
}

func TestStoreDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "scope", domain.ScopeState{}))
	require.NoError(t, store.Delete(ctx, "scope"))
	require.NoError(t, store.Delete(ctx, "scope"), "deleting absent state is fine")

	state, err := store.Load(ctx, "scope")
	require.NoError(t, err)
	assert.Empty(t, state.Fences)
}

func TestStoreSanitisesScopeKeys(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "mail/work@example", domain.ScopeState{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mail_work_example.json", entries[0].Name())

	state, err := store.Load(ctx, "mail/work@example")
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeStateVersion, state.Version)
}
