//go:build !unix

package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FileLock is an exclusively created marker file. A crashed holder leaves
// the marker behind; doctor reports it.
type FileLock struct {
	path string
}

// TryLockFile makes one attempt to create path exclusively.
func TryLockFile(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, DefaultFileMode)
	if errors.Is(err, fs.ErrExist) {
		return nil, ErrWouldBlock
	}
	if err != nil {
		return nil, fmt.Errorf("creating lock file %s: %w", path, err)
	}
	f.Close()
	return &FileLock{path: path}, nil
}

// Unlock removes the marker file.
func (l *FileLock) Unlock() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing lock file %s: %w", l.path, err)
	}
	return nil
}
