package platform

import (
	"errors"
	"io/fs"
	"os"
	"runtime"

	"github.com/spf13/afero"
)

// DefaultFileMode is applied to files created by the engine.
const DefaultFileMode os.FileMode = 0o644

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(fsys afero.Fs, path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return fsys.Chmod(path, mode)
}

// ModeOf returns the permission bits of an existing file so an atomic
// replacement keeps them. Missing files get DefaultFileMode.
func ModeOf(fsys afero.Fs, path string) (os.FileMode, error) {
	info, err := fsys.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultFileMode, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Mode().Perm(), nil
}
