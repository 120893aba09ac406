package memory

import (
	"context"
	"sync"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// Ensure ScopeStore implements the interface.
var _ driven.ScopeStore = (*ScopeStore)(nil)

// ScopeStore is an in-memory implementation of driven.ScopeStore.
type ScopeStore struct {
	mu     sync.RWMutex
	scopes map[string]domain.ScopeConfig
}

// NewScopeStore creates a new in-memory scope store.
func NewScopeStore() *ScopeStore {
	return &ScopeStore{
		scopes: make(map[string]domain.ScopeConfig),
	}
}

// Put validates and stores a scope configuration.
func (s *ScopeStore) Put(cfg domain.ScopeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[cfg.ID] = cfg
	return nil
}

// Get returns the configuration for a scope.
func (s *ScopeStore) Get(_ context.Context, scopeKey string) (*domain.ScopeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.scopes[scopeKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cfg, nil
}

// List returns all configured scopes.
func (s *ScopeStore) List(_ context.Context) ([]domain.ScopeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScopeConfig, 0, len(s.scopes))
	for _, cfg := range s.scopes {
		out = append(out, cfg)
	}
	return out, nil
}
