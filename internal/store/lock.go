package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/agentx-labs/agentsync/internal/platform"
)

// LockFile is the advisory lock inside the store.
const LockFile = ".lock"

var (
	// ErrLockTimeout is returned when another pass held the lock for the
	// whole timeout.
	ErrLockTimeout = errors.New("timed out waiting for the store lock")

	// ErrLockUnavailable is returned when the store's filesystem cannot
	// lock at all.
	ErrLockUnavailable = errors.New("store lock unavailable")
)

// Lock is a held store lock.
type Lock struct {
	path string
	fl   *platform.FileLock
	once sync.Once
	err  error
}

// AcquireLock takes the exclusive store lock, retrying with policy's
// backoff until policy.Deadline.
func AcquireLock(ctx context.Context, storeRoot string, policy platform.RetryPolicy) (*Lock, error) {
	path := filepath.Join(storeRoot, LockFile)
	var fl *platform.FileLock
	err := platform.Retry(ctx, policy, func(err error) bool {
		return errors.Is(err, platform.ErrWouldBlock) || platform.IsTransient(err)
	}, func() error {
		var err error
		fl, err = platform.TryLockFile(path)
		return err
	})
	switch {
	case err == nil:
		return &Lock{path: path, fl: fl}, nil
	case errors.Is(err, platform.ErrWouldBlock):
		return nil, fmt.Errorf("%w after %s: %s", ErrLockTimeout, policy.Deadline, path)
	case errors.Is(err, platform.ErrLockUnsupported):
		return nil, fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	default:
		return nil, fmt.Errorf("acquiring store lock: %w", err)
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. Calling it again is a no-op returning the first
// result.
func (l *Lock) Release() error {
	l.once.Do(func() { l.err = l.fl.Unlock() })
	return l.err
}

// Held reports whether another process holds the store lock right now.
func Held(storeRoot string) (bool, error) {
	fl, err := platform.TryLockFile(filepath.Join(storeRoot, LockFile))
	if errors.Is(err, platform.ErrWouldBlock) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, fl.Unlock()
}
