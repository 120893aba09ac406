package domain

import (
	"fmt"
	"time"
)

// ScopeKind identifies a source adapter type.
type ScopeKind string

const (
	// ScopeKindFilesystem collects from a watched directory tree.
	ScopeKindFilesystem ScopeKind = "filesystem"

	// ScopeKindMaildir collects from a local maildir tree.
	ScopeKindMaildir ScopeKind = "maildir"
)

// FilesystemOptions configures a filesystem scope.
type FilesystemOptions struct {
	// Root is the directory tree to collect from.
	Root string `toml:"root"`

	// Include restricts collection to matching base-name globs.
	// Empty means everything.
	Include []string `toml:"include,omitempty"`

	// Exclude drops matching base-name globs. Applied after Include.
	Exclude []string `toml:"exclude,omitempty"`

	// MaxFileSize caps resolved file content in bytes. Zero means 10 MiB.
	MaxFileSize int64 `toml:"max_file_size,omitempty"`
}

// MaildirOptions configures a maildir scope.
type MaildirOptions struct {
	// Path is the maildir root (containing cur/ and new/).
	Path string `toml:"path"`

	// Folders restricts collection to named subfolders (".Archive").
	// Empty means the root folder only.
	Folders []string `toml:"folders,omitempty"`
}

// ScopeConfig describes one unit of independent fencing and state: a single
// account, mailbox or watched root. Exactly one of the per-kind option
// structs must be set, matching Kind; the string-keyed option blobs of older
// config layouts are gone on purpose.
type ScopeConfig struct {
	// ID uniquely identifies the scope and keys its persisted state.
	ID string `toml:"id"`

	// Kind selects the source adapter.
	Kind ScopeKind `toml:"kind"`

	// Name is the human-readable scope name.
	Name string `toml:"name,omitempty"`

	// Filesystem holds options for ScopeKindFilesystem.
	Filesystem *FilesystemOptions `toml:"filesystem,omitempty"`

	// Maildir holds options for ScopeKindMaildir.
	Maildir *MaildirOptions `toml:"maildir,omitempty"`

	// BatchSize is the submission batch threshold. Zero means the engine
	// default.
	BatchSize int `toml:"batch_size,omitempty"`

	// Direction is the default processing order. Empty means descending.
	Direction Direction `toml:"direction,omitempty"`

	// ResolveConcurrency bounds parallel record resolution within the
	// scope. Zero means serial.
	ResolveConcurrency int `toml:"resolve_concurrency,omitempty"`

	// SaveInterval bounds how long a running scope may go without
	// persisting state. Zero means the engine default.
	SaveInterval time.Duration `toml:"save_interval,omitempty"`
}

// Validate checks that the config is well formed and that exactly the
// option struct matching Kind is present.
func (c *ScopeConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: scope id required", ErrInvalidInput)
	}
	if c.Direction != "" && !c.Direction.Valid() {
		return fmt.Errorf("%w: scope %s: unknown direction %q", ErrInvalidInput, c.ID, c.Direction)
	}
	if c.BatchSize < 0 || c.ResolveConcurrency < 0 {
		return fmt.Errorf("%w: scope %s: negative tuning value", ErrInvalidInput, c.ID)
	}

	switch c.Kind {
	case ScopeKindFilesystem:
		if c.Filesystem == nil {
			return fmt.Errorf("%w: scope %s: filesystem options required", ErrInvalidInput, c.ID)
		}
		if c.Maildir != nil {
			return fmt.Errorf("%w: scope %s: maildir options not allowed for filesystem kind", ErrInvalidInput, c.ID)
		}
		if c.Filesystem.Root == "" {
			return fmt.Errorf("%w: scope %s: filesystem root required", ErrInvalidInput, c.ID)
		}
	case ScopeKindMaildir:
		if c.Maildir == nil {
			return fmt.Errorf("%w: scope %s: maildir options required", ErrInvalidInput, c.ID)
		}
		if c.Filesystem != nil {
			return fmt.Errorf("%w: scope %s: filesystem options not allowed for maildir kind", ErrInvalidInput, c.ID)
		}
		if c.Maildir.Path == "" {
			return fmt.Errorf("%w: scope %s: maildir path required", ErrInvalidInput, c.ID)
		}
	default:
		return fmt.Errorf("%w: scope %s: kind %q", ErrUnsupportedType, c.ID, c.Kind)
	}
	return nil
}

// DisplayName returns the scope name, falling back to the ID.
func (c *ScopeConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
