package driven

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// RunHistoryStore records completed runs for inspection. History is
// informational only; fences, not history, decide what gets re-processed.
type RunHistoryStore interface {
	// RecordRun appends one run record.
	RecordRun(ctx context.Context, rec *domain.RunRecord) error

	// ListRuns returns recent runs for a scope, most recent first.
	ListRuns(ctx context.Context, scopeKey string, limit int) ([]domain.RunRecord, error)

	// Prune keeps only the most recent 'keep' records per scope.
	Prune(ctx context.Context, keep int) error
}
