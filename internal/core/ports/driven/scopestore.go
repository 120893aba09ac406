package driven

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// ScopeStore provides validated scope configuration.
type ScopeStore interface {
	// Get returns the configuration for a scope.
	// Returns domain.ErrNotFound if the scope is not configured.
	Get(ctx context.Context, scopeKey string) (*domain.ScopeConfig, error)

	// List returns all configured scopes.
	List(ctx context.Context) ([]domain.ScopeConfig, error)
}
