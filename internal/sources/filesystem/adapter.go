// Package filesystem collects candidate records from a watched directory
// tree. A file's canonical timestamp is its modification time; its path is
// the stable reference.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// defaultMaxFileSize caps resolved file content when the scope does not
// set its own limit.
const defaultMaxFileSize = 10 * 1024 * 1024 // 10 MiB

// Ensure Adapter implements the interfaces.
var (
	_ driven.SourceAdapter    = (*Adapter)(nil)
	_ driven.WatchableAdapter = (*Adapter)(nil)
)

// Adapter is the filesystem source adapter for one scope.
type Adapter struct {
	scopeKey string
	opts     domain.FilesystemOptions
}

// New creates a filesystem adapter. The root must exist and be a directory.
func New(scopeKey string, opts domain.FilesystemOptions) (*Adapter, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("filesystem root %s: %w", opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: filesystem root %s is not a directory", domain.ErrInvalidInput, opts.Root)
	}

	return &Adapter{scopeKey: scopeKey, opts: opts}, nil
}

// Kind returns the source kind identifier.
func (a *Adapter) Kind() string {
	return string(domain.ScopeKindFilesystem)
}

// ScopeKey returns the configured scope ID.
func (a *Adapter) ScopeKey() string {
	return a.scopeKey
}

// ListCandidateKeys walks the tree and returns a key for every matching
// file whose modification time falls inside the window.
func (a *Adapter) ListCandidateKeys(ctx context.Context, window domain.Fence) ([]domain.CandidateKey, error) {
	var keys []domain.CandidateKey

	err := filepath.WalkDir(a.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != a.opts.Root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !a.matches(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// File vanished mid-walk.
			logger.Debug("stat %s: %v", path, err)
			return nil
		}

		mtime := info.ModTime().UTC()
		if !window.Contains(mtime) {
			return nil
		}

		keys = append(keys, domain.CandidateKey{
			Seq:       mtime.UnixNano(),
			Ref:       path,
			Timestamp: mtime,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", a.opts.Root, err)
	}

	return keys, nil
}

// Resolve reads the file behind a key. Text files carry their content
// inline; binary files travel as a single attachment.
func (a *Adapter) Resolve(ctx context.Context, key domain.CandidateKey) (*domain.CandidateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(key.Ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordUnresolvable, key.Ref)
		}
		return nil, fmt.Errorf("stat %s: %w", key.Ref, err)
	}

	maxSize := a.opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds size limit (%d > %d)",
			domain.ErrRecordUnresolvable, key.Ref, info.Size(), maxSize)
	}

	data, err := os.ReadFile(key.Ref)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrRecordUnresolvable, key.Ref, err)
	}

	mtime := info.ModTime().UTC()
	rec := &domain.CandidateRecord{
		Key:       key,
		Timestamp: mtime,
		Metadata: map[string]string{
			"path":      key.Ref,
			"size":      strconv.FormatInt(info.Size(), 10),
			"extension": strings.ToLower(filepath.Ext(key.Ref)),
		},
	}

	if isText(data) {
		rec.Content = string(data)
	} else {
		rec.Attachments = []domain.Attachment{{
			Filename:  filepath.Base(key.Ref),
			MediaType: detectMediaType(key.Ref),
			Content:   data,
		}}
	}
	return rec, nil
}

// Watch signals whenever something under the root changes. The returned
// channel coalesces bursts; each receive means "worth scheduling a run".
func (a *Adapter) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the whole tree; fsnotify is not recursive on its own.
	err = filepath.WalkDir(a.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != a.opts.Root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", a.opts.Root, err)
	}

	signals := make(chan struct{}, 1)
	go func() {
		defer close(signals)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				// New directories need their own watch.
				if event.Op&fsnotify.Create != 0 {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						if addErr := watcher.Add(event.Name); addErr != nil {
							logger.Debug("watching new directory %s: %v", event.Name, addErr)
						}
					}
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watching %s: %v", a.opts.Root, watchErr)
			}
		}
	}()

	return signals, nil
}

// Close releases resources.
func (a *Adapter) Close() error {
	return nil
}

// matches applies the include and exclude globs to a base name.
func (a *Adapter) matches(name string) bool {
	if len(a.opts.Include) > 0 {
		included := false
		for _, pattern := range a.opts.Include {
			if ok, _ := filepath.Match(pattern, name); ok {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, pattern := range a.opts.Exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return false
		}
	}
	return true
}

// isHidden reports whether a base name is a dotfile.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isText reports whether data looks like UTF-8 text without NUL bytes.
func isText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return utf8.Valid(data)
}

// detectMediaType maps a path to a MIME type by extension.
func detectMediaType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
