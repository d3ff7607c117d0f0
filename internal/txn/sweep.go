package txn

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentx-labs/agentsync/internal/platform"
)

// Temps lists staged files left behind in the given worktree-relative
// directories by a pass that never finished.
func Temps(fsys afero.Fs, root string, dirs []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, rel := range dirs {
		dir := root
		if rel != "" && rel != "." {
			var err error
			if dir, err = platform.Within(root, rel); err != nil {
				return nil, err
			}
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true

		infos, err := afero.ReadDir(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			name := info.Name()
			if !info.IsDir() && strings.HasPrefix(name, ".") && strings.HasSuffix(name, TempSuffix()) {
				out = append(out, filepath.Join(dir, name))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Sweep removes the files Temps finds and returns them.
func Sweep(fsys afero.Fs, root string, dirs []string) ([]string, error) {
	temps, err := Temps(fsys, root, dirs)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, t := range temps {
		if err := fsys.Remove(t); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return temps, errors.Join(errs...)
}
