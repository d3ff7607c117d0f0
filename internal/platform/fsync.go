package platform

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"

	"github.com/spf13/afero"
)

// SyncDir flushes a directory so renames inside it survive a crash.
// Platforms and filesystems that cannot sync directories are ignored.
func SyncDir(fsys afero.Fs, dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := fsys.Open(dir)
	if err != nil {
		return fmt.Errorf("opening directory %s: %w", dir, err)
	}
	err = d.Sync()
	d.Close()
	if err != nil && !errors.Is(err, syscall.EINVAL) {
		return fmt.Errorf("syncing directory %s: %w", dir, err)
	}
	return nil
}
