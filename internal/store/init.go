package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/agentx-labs/agentsync/internal/branding"
	"github.com/agentx-labs/agentsync/internal/model"
	"github.com/agentx-labs/agentsync/internal/provider"
)

// Permission constants.
const (
	DirPerm  os.FileMode = 0o755
	FilePerm os.FileMode = 0o644
)

const gitignoreContent = StateDir + "/\n" + LockFile + "\n"

// Init creates the store skeleton under holder and returns the store root.
// Existing items are left alone and reported as skipped on w.
func Init(fsys afero.Fs, holder string, providers []string, w io.Writer) (string, error) {
	root := filepath.Join(holder, branding.StoreDir())
	if err := ensureDir(fsys, w, root); err != nil {
		return "", err
	}
	for _, dir := range []string{
		model.KindRule.Dir(),
		model.KindSkill.Dir(),
		model.KindWorkflow.Dir(),
		model.KindPreset.Dir(),
		provider.StoreDir,
		StateDir,
	} {
		if err := ensureDir(fsys, w, filepath.Join(root, dir)); err != nil {
			return "", err
		}
	}

	cfg := model.StoreConfig{Version: 1, Providers: providers}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling store config: %w", err)
	}
	if err := ensureFile(fsys, w, filepath.Join(root, model.StoreFile), data); err != nil {
		return "", err
	}
	if err := ensureFile(fsys, w, filepath.Join(root, ".gitignore"), []byte(gitignoreContent)); err != nil {
		return "", err
	}
	return root, nil
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(fsys afero.Fs, w io.Writer, path string) error {
	if info, err := fsys.Stat(path); err == nil {
		if info.IsDir() {
			fmt.Fprintf(w, "  [SKIP] %s already exists\n", path)
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}

	if err := fsys.MkdirAll(path, DirPerm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	fmt.Fprintf(w, "  [ OK ] Created %s\n", path)
	return nil
}

// ensureFile creates a file with content if it doesn't exist.
func ensureFile(fsys afero.Fs, w io.Writer, path string, content []byte) error {
	if _, err := fsys.Stat(path); err == nil {
		fmt.Fprintf(w, "  [SKIP] %s already exists\n", path)
		return nil
	}
	if err := afero.WriteFile(fsys, path, content, FilePerm); err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	fmt.Fprintf(w, "  [ OK ] Created %s\n", path)
	return nil
}
