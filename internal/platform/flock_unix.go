//go:build unix

package platform

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an exclusive flock(2) held on an open file.
type FileLock struct {
	f *os.File
}

// TryLockFile makes one non-blocking attempt to take an exclusive lock on
// path, creating the file if needed. The lock file itself is never removed.
func TryLockFile(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, DefaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	switch {
	case err == nil:
		return &FileLock{f: f}, nil
	case errors.Is(err, unix.EWOULDBLOCK):
		f.Close()
		return nil, ErrWouldBlock
	case errors.Is(err, unix.ENOLCK), errors.Is(err, unix.EOPNOTSUPP):
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrLockUnsupported, path, err)
	default:
		f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
}

// Unlock releases the lock and closes the file.
func (l *FileLock) Unlock() error {
	uerr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	if uerr != nil {
		return fmt.Errorf("unlocking %s: %w", l.f.Name(), uerr)
	}
	return cerr
}
