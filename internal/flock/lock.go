package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/errors"
)

// Lock is a held exclusive lock on a sidecar file.
type Lock struct {
	f *os.File
}

// Path returns the lock file path used for target.
func Path(target string) string {
	return target + ".lock"
}

// Acquire takes an exclusive lock for target, retrying until timeout or until
// ctx is done. The parent directory of target is created if missing.
func Acquire(ctx context.Context, target string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(target), constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(Path(target), os.O_CREATE|os.O_RDWR, constants.FilePerm) //#nosec G302,G304 -- lock file path derived from a crucible-owned target
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := tryLock(f.Fd()); err == nil {
			return &Lock{f: f}, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", target, errors.ErrLockTimeout)
		}

		time.Sleep(constants.LockRetryInterval)
	}
}

// Release unlocks and closes the lock file. It is safe to call on nil.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlock(l.f.Fd())
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
