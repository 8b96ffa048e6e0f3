package envsnap

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/flock"
)

// Store persists snapshots between runs.
type Store interface {
	// Save writes snap, replacing any previous snapshot for its toolchain.
	Save(ctx context.Context, snap *Snapshot) error

	// Load reads the snapshot for name. Returns ErrSnapshotMissing if absent.
	Load(ctx context.Context, name domain.Toolchain) (*Snapshot, error)

	// Delete removes the snapshot for name. Deleting an absent snapshot is not an error.
	Delete(ctx context.Context, name domain.Toolchain) error

	// List returns every cached snapshot sorted by toolchain.
	List(ctx context.Context) ([]*Snapshot, error)
}

// FileStore keeps one JSON file per toolchain: <dir>/<name>_env.json.
// Writes are atomic and guarded by a file lock; reads take no lock.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the cache file for name.
func (s *FileStore) Path(name domain.Toolchain) string {
	return filepath.Join(s.dir, name.String()+constants.EnvCacheFileSuffix)
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	path := s.Path(snap.Toolchain)
	lock, err := flock.Acquire(ctx, path, constants.LockTimeout)
	if err != nil {
		return errors.Wrapf(err, "failed to lock snapshot for %s", snap.Toolchain)
	}
	defer func() { _ = lock.Release() }()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := atomicWrite(path, data, constants.FilePerm); err != nil {
		return errors.Wrapf(err, "failed to write snapshot %s", path)
	}

	zerolog.Ctx(ctx).Debug().
		Str("toolchain", snap.Toolchain.String()).
		Str("path", path).
		Int("vars", len(snap.Vars)).
		Msg("snapshot saved")
	return nil
}

// Load implements Store. A corrupt file is reported as missing so that the
// caller re-detects.
func (s *FileStore) Load(ctx context.Context, name domain.Toolchain) (*Snapshot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := s.Path(name)
	data, err := os.ReadFile(path) //#nosec G304 -- path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, errors.ErrSnapshotMissing)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("ignoring corrupt snapshot")
		return nil, fmt.Errorf("%s (corrupt cache file): %w", name, errors.ErrSnapshotMissing)
	}
	if err := snap.Check(name); err != nil {
		return nil, err
	}
	if snap.Vars == nil {
		snap.Vars = map[string]string{}
	}
	return &snap, nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, name domain.Toolchain) error {
	path := s.Path(name)
	lock, err := flock.Acquire(ctx, path, constants.LockTimeout)
	if err != nil {
		return errors.Wrapf(err, "failed to lock snapshot for %s", name)
	}
	defer func() { _ = lock.Release() }()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot %s: %w", path, err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	snaps := make([]*Snapshot, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), constants.EnvCacheFileSuffix)
		if e.IsDir() || !ok || !domain.Toolchain(name).Valid() {
			continue
		}
		snap, err := s.Load(ctx, domain.Toolchain(name))
		if stderrors.Is(err, errors.ErrSnapshotMissing) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Toolchain < snaps[j].Toolchain })
	return snaps, nil
}

// atomicWrite writes data to a temp file, syncs, and renames it over path.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
