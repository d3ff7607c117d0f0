package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentx-labs/agentsync/internal/branding"
)

// ErrNotFound is returned when no control store is reachable from the
// start path.
var ErrNotFound = errors.New("control store not found")

// Mode is the repository layout the store was found through.
type Mode int

const (
	// ModeClassic is a store next to the worktree's own .git directory, or
	// in a plain directory outside git.
	ModeClassic Mode = iota
	// ModeLinkedWorktree is a linked worktree using the store of the main
	// worktree.
	ModeLinkedWorktree
	// ModeContainer is a linked worktree whose common git directory is a
	// bare repository inside a container directory holding the store.
	ModeContainer
	// ModeOverride is a store named by the environment.
	ModeOverride
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeClassic:
		return "classic"
	case ModeLinkedWorktree:
		return "linked-worktree"
	case ModeContainer:
		return "container"
	case ModeOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Worktree ids for checkouts that have no linked worktree name.
const (
	MainWorktreeID    = "main"
	DefaultWorktreeID = "default"
)

// Location is a resolved control store.
type Location struct {
	// Root is the store directory itself.
	Root string `json:"root"`
	// Worktree is the checkout the pass renders into.
	Worktree   string `json:"worktree"`
	WorktreeID string `json:"worktree_id"`
	Mode       Mode   `json:"-"`
	ModeName   string `json:"mode"`
}

// StoreEnv names the variable that overrides resolution.
func StoreEnv() string { return branding.EnvVar("STORE") }

// Resolve walks upward from start to the control store.
func Resolve(fsys afero.Fs, start string) (*Location, error) {
	start, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", start, err)
	}

	if override := os.Getenv(StoreEnv()); override != "" {
		return resolveOverride(fsys, start, override)
	}

	for dir := start; ; {
		holder, err := isDir(fsys, filepath.Join(dir, branding.StoreDir()))
		if err != nil {
			return nil, err
		}
		gitPath := filepath.Join(dir, ".git")
		gitInfo, err := fsys.Stat(gitPath)
		hasGit := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("inspecting %s: %w", gitPath, err)
		}

		switch {
		case hasGit && !gitInfo.IsDir():
			// A linked worktree shares the main checkout's store, even when
			// it has a committed copy of its own.
			loc, err := resolveLinked(fsys, dir, gitPath)
			if err == nil || !holder || !errors.Is(err, ErrNotFound) {
				return loc, err
			}
			return holderLocation(fsys, dir, gitPath, gitInfo)
		case holder:
			var info fs.FileInfo
			if hasGit {
				info = gitInfo
			}
			return holderLocation(fsys, dir, gitPath, info)
		case hasGit:
			// A main worktree's .git directory ends the walk.
			return nil, fmt.Errorf("%w in %s or above %s", ErrNotFound, dir, start)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("%w above %s", ErrNotFound, start)
		}
		dir = parent
	}
}

// holderLocation is the store in dir itself. gitInfo is nil outside git.
func holderLocation(fsys afero.Fs, dir, gitPath string, gitInfo fs.FileInfo) (*Location, error) {
	loc := &Location{
		Root:       filepath.Join(dir, branding.StoreDir()),
		Worktree:   dir,
		WorktreeID: DefaultWorktreeID,
		Mode:       ModeClassic,
	}
	if gitInfo != nil {
		var err error
		if loc.WorktreeID, err = worktreeIDOf(fsys, gitPath, gitInfo); err != nil {
			return nil, err
		}
	}
	return loc.named(), nil
}

// resolveLinked follows a linked worktree's .git file to the common git
// directory and looks for the store beside it.
func resolveLinked(fsys afero.Fs, worktree, gitFile string) (*Location, error) {
	gitDir, err := readGitDir(fsys, gitFile)
	if err != nil {
		return nil, err
	}
	common, err := commonDir(fsys, gitDir)
	if err != nil {
		return nil, err
	}

	candidate := filepath.Dir(common)
	ok, err := isDir(fsys, filepath.Join(candidate, branding.StoreDir()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w for worktree %s (looked in %s)", ErrNotFound, worktree, candidate)
	}

	mode := ModeContainer
	if filepath.Base(common) == ".git" {
		mode = ModeLinkedWorktree
	}
	loc := &Location{
		Root:       filepath.Join(candidate, branding.StoreDir()),
		Worktree:   worktree,
		WorktreeID: filepath.Base(gitDir),
		Mode:       mode,
	}
	return loc.named(), nil
}

func resolveOverride(fsys afero.Fs, start, override string) (*Location, error) {
	root, err := filepath.Abs(override)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", override, err)
	}
	ok, err := isDir(fsys, root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s=%s is not a directory", ErrNotFound, StoreEnv(), override)
	}

	loc := &Location{Root: root, Worktree: start, WorktreeID: DefaultWorktreeID, Mode: ModeOverride}
	for dir := start; ; {
		gitPath := filepath.Join(dir, ".git")
		info, err := fsys.Stat(gitPath)
		if err == nil {
			loc.Worktree = dir
			if loc.WorktreeID, err = worktreeIDOf(fsys, gitPath, info); err != nil {
				return nil, err
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return loc.named(), nil
}

func worktreeIDOf(fsys afero.Fs, gitPath string, info fs.FileInfo) (string, error) {
	if info.IsDir() {
		return MainWorktreeID, nil
	}
	gitDir, err := readGitDir(fsys, gitPath)
	if err != nil {
		return "", err
	}
	return filepath.Base(gitDir), nil
}

// readGitDir parses a "gitdir: <path>" file.
func readGitDir(fsys afero.Fs, gitFile string) (string, error) {
	data, err := afero.ReadFile(fsys, gitFile)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", gitFile, err)
	}
	line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	dir, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%s: not a gitdir file", gitFile)
	}
	dir = strings.TrimSpace(dir)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(gitFile), dir)
	}
	return filepath.Clean(dir), nil
}

// commonDir returns the shared git directory of a worktree git dir.
func commonDir(fsys afero.Fs, gitDir string) (string, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(gitDir, "commondir"))
	if errors.Is(err, fs.ErrNotExist) {
		return gitDir, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading commondir: %w", err)
	}
	dir := strings.TrimSpace(string(data))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(gitDir, dir)
	}
	return filepath.Clean(dir), nil
}

func isDir(fsys afero.Fs, path string) (bool, error) {
	info, err := fsys.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", path, err)
	}
	return info.IsDir(), nil
}

func (l *Location) named() *Location {
	l.ModeName = l.Mode.String()
	return l
}
