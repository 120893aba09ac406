package driven

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// SourceAdapter hands the engine a stream of timestamped candidate records
// from one data source. Each source kind (filesystem, maildir) implements
// this interface; the engine never interprets keys beyond ordering.
type SourceAdapter interface {
	// Kind returns the source kind identifier.
	Kind() string

	// ScopeKey returns the configured scope ID.
	ScopeKey() string

	// ListCandidateKeys returns the candidate keys whose canonical
	// timestamp falls inside the window, ascending by the source's
	// native ordering. A failure here is fatal for the run.
	ListCandidateKeys(ctx context.Context, window domain.Fence) ([]domain.CandidateKey, error)

	// Resolve materialises the full record for a key. A failure here
	// affects only that record.
	Resolve(ctx context.Context, key domain.CandidateKey) (*domain.CandidateRecord, error)

	// Close releases resources.
	Close() error
}

// WatchableAdapter is implemented by adapters that can signal changes.
// Each receive on the returned channel means "something changed, a run is
// worth scheduling"; the channel is closed when ctx ends.
type WatchableAdapter interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// AdapterFactory builds the source adapter for a scope.
type AdapterFactory interface {
	Create(ctx context.Context, cfg domain.ScopeConfig) (SourceAdapter, error)
}
