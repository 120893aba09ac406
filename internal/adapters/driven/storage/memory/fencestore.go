// Package memory provides in-memory store implementations, used in tests
// and as fallbacks when persistence is not configured.
package memory

import (
	"context"
	"sync"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// Ensure FenceStateStore implements the interface.
var _ driven.FenceStateStore = (*FenceStateStore)(nil)

// FenceStateStore is an in-memory implementation of driven.FenceStateStore.
type FenceStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.ScopeState
}

// NewFenceStateStore creates a new in-memory fence state store.
func NewFenceStateStore() *FenceStateStore {
	return &FenceStateStore{
		states: make(map[string]domain.ScopeState),
	}
}

// Load returns the stored state, or an empty state when absent.
func (s *FenceStateStore) Load(_ context.Context, scopeKey string) (domain.ScopeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[scopeKey]
	if !ok {
		return domain.ScopeState{Version: domain.ScopeStateVersion}, nil
	}
	return state, nil
}

// Save stores the state for a scope.
func (s *FenceStateStore) Save(_ context.Context, scopeKey string, state domain.ScopeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[scopeKey] = state
	return nil
}

// Delete removes the state for a scope.
func (s *FenceStateStore) Delete(_ context.Context, scopeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, scopeKey)
	return nil
}
