// Package statefile persists per-scope fence state as JSON files, one file
// per scope, written atomically. It is the engine's ground truth across
// restarts, so reads are deliberately forgiving: an absent, corrupt or
// legacy-schema file yields an empty state rather than an error.
package statefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.FenceStateStore = (*Store)(nil)

// Store reads and writes scope state files under a single directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created on first
// save, not here, so construction never fails.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the standard state directory under the user's home.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".haven", "state"), nil
}

// Load reads the state for a scope. Corruption is logged and swallowed:
// losing coverage bookkeeping costs a re-scan, aborting a run costs the run.
func (s *Store) Load(_ context.Context, scopeKey string) (domain.ScopeState, error) {
	empty := domain.ScopeState{Version: domain.ScopeStateVersion}

	data, err := os.ReadFile(s.path(scopeKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return empty, nil
		}
		return empty, fmt.Errorf("reading state for %s: %w", scopeKey, err)
	}

	var state domain.ScopeState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("state file for %s is corrupt, starting from empty coverage: %v", scopeKey, err)
		return empty, nil
	}
	if state.Version != domain.ScopeStateVersion {
		logger.Warn("state file for %s has schema version %d, starting from empty coverage", scopeKey, state.Version)
		return empty, nil
	}

	state.Fences = state.Fences.Normalized()
	return state, nil
}

// Save writes the state via a temp file and rename, so a crash mid-write
// never leaves a partial file behind.
func (s *Store) Save(_ context.Context, scopeKey string, state domain.ScopeState) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	state.Version = domain.ScopeStateVersion
	state.Fences = state.Fences.Normalized()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", scopeKey, err)
	}

	target := s.path(scopeKey)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state for %s: %w", scopeKey, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing state for %s: %w", scopeKey, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state for %s: %w", scopeKey, err)
	}
	return nil
}

// Delete removes the persisted state for a scope. Deleting absent state is
// not an error.
func (s *Store) Delete(_ context.Context, scopeKey string) error {
	err := os.Remove(s.path(scopeKey))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting state for %s: %w", scopeKey, err)
	}
	return nil
}

// path maps a scope key onto a file name, replacing characters that do not
// belong in one.
func (s *Store) path(scopeKey string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, scopeKey)
	return filepath.Join(s.dir, clean+".json")
}
