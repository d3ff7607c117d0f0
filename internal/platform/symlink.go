package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrSymlinkPath is returned when a target path traverses a symbolic link
// below the worktree root.
var ErrSymlinkPath = errors.New("path traverses a symlink")

// ErrOutsideRoot is returned when a relative path escapes its root.
var ErrOutsideRoot = errors.New("path escapes root")

// Within joins rel onto root and rejects absolute paths and ".." escapes.
func Within(root, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q: %w", rel, ErrOutsideRoot)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", rel, ErrOutsideRoot)
	}
	return filepath.Join(root, clean), nil
}

// CheckNoSymlink verifies that no existing component of rel below root is a
// symbolic link. Components that do not exist yet are fine. Filesystems that
// cannot report link status (in-memory ones) always pass.
func CheckNoSymlink(fsys afero.Fs, root, rel string) error {
	lst, ok := fsys.(afero.Lstater)
	if !ok {
		return nil
	}
	if _, err := Within(root, rel); err != nil {
		return err
	}

	cur := root
	for _, part := range strings.Split(filepath.Clean(filepath.FromSlash(rel)), string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, lstatCalled, err := lst.LstatIfPossible(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", cur, err)
		}
		if lstatCalled && info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%s: %w", cur, ErrSymlinkPath)
		}
	}
	return nil
}
