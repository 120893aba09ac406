package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

func TestFactoryCreatesFilesystemAdapter(t *testing.T) {
	factory := NewFactory()

	adapter, err := factory.Create(context.Background(), domain.ScopeConfig{
		ID:         "notes",
		Kind:       domain.ScopeKindFilesystem,
		Filesystem: &domain.FilesystemOptions{Root: t.TempDir()},
	})
	require.NoError(t, err)
	defer adapter.Close()

	assert.Equal(t, "filesystem", adapter.Kind())
	assert.Equal(t, "notes", adapter.ScopeKey())
}

func TestFactoryCreatesMaildirAdapter(t *testing.T) {
	factory := NewFactory()

	adapter, err := factory.Create(context.Background(), domain.ScopeConfig{
		ID:      "mail",
		Kind:    domain.ScopeKindMaildir,
		Maildir: &domain.MaildirOptions{Path: t.TempDir()},
	})
	require.NoError(t, err)
	defer adapter.Close()

	assert.Equal(t, "maildir", adapter.Kind())
}

func TestFactoryRejectsInvalidConfig(t *testing.T) {
	factory := NewFactory()

	_, err := factory.Create(context.Background(), domain.ScopeConfig{
		ID:   "broken",
		Kind: domain.ScopeKind("imap"),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = factory.Create(context.Background(), domain.ScopeConfig{
		ID:   "broken",
		Kind: domain.ScopeKindFilesystem,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
