// Package sources wires the per-kind source adapters to the collection
// engine.
package sources

import (
	"context"
	"fmt"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/sources/filesystem"
	"github.com/ChrisPatten/haven-sub000/internal/sources/maildir"
)

// Ensure Factory implements the interface.
var _ driven.AdapterFactory = (*Factory)(nil)

// Factory builds source adapters from scope configuration.
type Factory struct{}

// NewFactory creates an adapter factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create builds the adapter for a scope's kind.
func (f *Factory) Create(_ context.Context, cfg domain.ScopeConfig) (driven.SourceAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case domain.ScopeKindFilesystem:
		return filesystem.New(cfg.ID, *cfg.Filesystem)
	case domain.ScopeKindMaildir:
		return maildir.New(cfg.ID, *cfg.Maildir)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, cfg.Kind)
	}
}
