// Package file persists wishlist state as a single JSON document on local
// disk, the server-side analogue of the web app's localStorage backend. A
// flock on a .lock sibling keeps concurrent processes from corrupting the
// document; it does not make separate processes see each other's writes.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"

	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/repository"
)

// lockRetryDelay is how often a blocked lock attempt is retried until the
// caller's context expires.
const lockRetryDelay = 50 * time.Millisecond

// Repository stores state in a JSON file at a fixed path.
type Repository struct {
	path string
	lock *flock.Flock
}

// New creates a file-backed repository. The parent directory is created if
// missing; the file itself is created on first Save.
func New(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Repository{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Load reads the state document. A missing file is a first run and yields
// (nil, nil); a malformed document is treated the same way so a damaged file
// never blocks startup.
func (r *Repository) Load(ctx context.Context) (*models.State, error) {
	if _, err := r.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", r.lock.Path(), err)
	}
	defer r.lock.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	var state models.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}
	if len(state.Profiles) == 0 {
		return nil, nil
	}
	return &state, nil
}

// Save writes the state atomically: marshal, write a temp file next to the
// target, then rename over it.
func (r *Repository) Save(ctx context.Context, state *models.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if _, err := r.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to lock %s: %w", r.lock.Path(), err)
	}
	defer r.lock.Unlock()

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	return nil
}

// Close removes the lock and any leftover temp file.
func (r *Repository) Close() error {
	var result *multierror.Error
	if err := os.Remove(r.path + ".tmp"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		result = multierror.Append(result, fmt.Errorf("failed to remove temp file: %w", err))
	}
	if err := os.Remove(r.lock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		result = multierror.Append(result, fmt.Errorf("failed to remove lock file: %w", err))
	}
	return result.ErrorOrNil()
}

var _ repository.StateRepository = (*Repository)(nil)
