package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// Ensure RunHistoryStore implements the interface.
var _ driven.RunHistoryStore = (*RunHistoryStore)(nil)

// RunHistoryStore is an in-memory implementation of driven.RunHistoryStore.
type RunHistoryStore struct {
	mu   sync.RWMutex
	runs []domain.RunRecord
}

// NewRunHistoryStore creates a new in-memory run history store.
func NewRunHistoryStore() *RunHistoryStore {
	return &RunHistoryStore{}
}

// RecordRun appends one run record.
func (s *RunHistoryStore) RecordRun(_ context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *rec)
	return nil
}

// ListRuns returns recent runs for a scope, most recent first.
func (s *RunHistoryStore) ListRuns(_ context.Context, scopeKey string, limit int) ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RunRecord
	for _, r := range s.runs {
		if r.ScopeKey == scopeKey {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune keeps only the most recent 'keep' records per scope.
func (s *RunHistoryStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byScope := make(map[string][]domain.RunRecord)
	for _, r := range s.runs {
		byScope[r.ScopeKey] = append(byScope[r.ScopeKey], r)
	}

	var kept []domain.RunRecord
	for _, runs := range byScope {
		sort.SliceStable(runs, func(i, j int) bool {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		})
		if keep > 0 && len(runs) > keep {
			runs = runs[:keep]
		}
		kept = append(kept, runs...)
	}
	s.runs = kept
	return nil
}
