package driven

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// FenceStateStore persists per-scope fence coverage and run state.
// It is the engine's only ground truth across crashes and restarts.
type FenceStateStore interface {
	// Load reads the state for a scope. An absent, corrupt or
	// legacy-schema blob yields an empty state and no error: corruption
	// must never abort a run.
	Load(ctx context.Context, scopeKey string) (domain.ScopeState, error)

	// Save writes the state atomically. A concurrent reader never
	// observes a partial file.
	Save(ctx context.Context, scopeKey string, state domain.ScopeState) error

	// Delete removes the persisted state for a scope.
	Delete(ctx context.Context, scopeKey string) error
}
