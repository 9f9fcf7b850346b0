// Package fs stores analyzer parameters as JSON files in an artifact
// directory. Writes take a file lock and go through a temp-file rename, so a
// serving process never observes a half-written envelope.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/repository/artifact"
)

// lockRetryInterval is how often a blocked writer re-attempts the file lock.
const lockRetryInterval = 50 * time.Millisecond

// Compile-time check: Store implements artifact.Store.
var _ artifact.Store = (*Store)(nil)

// Store persists analyzer params under <dir>/<name>.json.
type Store struct {
	dir string
}

// New creates a filesystem artifact store, creating dir if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the params envelope, guarded by a sidecar file lock.
func (s *Store) Save(ctx context.Context, name string, p params.Params) error {
	data, err := artifact.Encode(p)
	if err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}

	lock := flock.New(s.lockPath(name))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("lock artifact %q: %w", name, err)
	}
	if !locked {
		return fmt.Errorf("lock artifact %q: not acquired", name)
	}
	defer func() { _ = lock.Unlock() }()

	return s.writeAtomic(name, data)
}

// writeAtomic writes to a temp file in the same directory and renames over
// the target, so readers see either the old or the new envelope, never a mix.
func (s *Store) writeAtomic(name string, data []byte) error {
	target := s.path(name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write artifact %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close artifact %q: %w", name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename artifact %q: %w", name, err)
	}
	return nil
}

// Load reads and decodes a persisted envelope.
func (s *Store) Load(_ context.Context, name string) (params.Params, error) {
	data, err := os.ReadFile(filepath.Clean(s.path(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return params.Params{}, fmt.Errorf("load %q: %w", name, artifact.ErrNotFound)
		}
		return params.Params{}, fmt.Errorf("load %q: %w", name, err)
	}

	p, err := artifact.Decode(data)
	if err != nil {
		return params.Params{}, fmt.Errorf("load %q: %w", name, err)
	}
	return p, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) lockPath(name string) string {
	return filepath.Join(s.dir, name+".lock")
}
