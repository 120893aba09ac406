package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ScopeStore = (*ConfigStore)(nil)

// Config is the on-disk layout of the haven configuration file.
type Config struct {
	Engine    domain.EngineConfig    `toml:"engine"`
	Scheduler domain.SchedulerConfig `toml:"scheduler"`
	Scopes    []domain.ScopeConfig   `toml:"scopes"`
}

// ConfigStore is a TOML-file-backed implementation of driven.ScopeStore.
// The whole file is read and validated once at construction; scopes are
// immutable for the life of the process.
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	config Config
}

// DefaultPath returns the standard config file path under the user's home.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".haven", "config.toml"), nil
}

// NewConfigStore reads and validates the config file at path. A missing
// file yields an empty, default-tuned configuration rather than an error;
// a malformed or invalid file is fatal.
func NewConfigStore(path string) (*ConfigStore, error) {
	s := &ConfigStore{
		path: path,
		config: Config{
			Engine:    domain.DefaultEngineConfig(),
			Scheduler: domain.DefaultSchedulerConfig(),
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &s.config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	seen := make(map[string]bool, len(s.config.Scopes))
	for i := range s.config.Scopes {
		scope := &s.config.Scopes[i]
		if err := scope.Validate(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		if seen[scope.ID] {
			return nil, fmt.Errorf("%w: config %s: duplicate scope id %q", domain.ErrInvalidInput, path, scope.ID)
		}
		seen[scope.ID] = true
	}

	return s, nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// Engine returns the engine tuning section.
func (s *ConfigStore) Engine() domain.EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Engine
}

// Scheduler returns the scheduler section.
func (s *ConfigStore) Scheduler() domain.SchedulerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Scheduler
}

// Get returns the configuration for a scope.
func (s *ConfigStore) Get(_ context.Context, scopeKey string) (*domain.ScopeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.config.Scopes {
		if s.config.Scopes[i].ID == scopeKey {
			cfg := s.config.Scopes[i]
			return &cfg, nil
		}
	}
	return nil, fmt.Errorf("%w: scope %q", domain.ErrNotFound, scopeKey)
}

// List returns all configured scopes.
func (s *ConfigStore) List(_ context.Context) ([]domain.ScopeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ScopeConfig, len(s.config.Scopes))
	copy(out, s.config.Scopes)
	return out, nil
}

// WriteDefault writes a commented starter config to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", domain.ErrInvalidInput, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	cfg := Config{
		Engine:    domain.DefaultEngineConfig(),
		Scheduler: domain.DefaultSchedulerConfig(),
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
