//go:build integration

package integration_test

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/agentx-labs/agentsync/internal/config"
	"github.com/agentx-labs/agentsync/internal/engine"
	"github.com/agentx-labs/agentsync/internal/store"
)

// testEnv is a real git repository with a control store in its main worktree.
type testEnv struct {
	MainDir string // main worktree, holds .agentsync/
	Base    string // parent directory for linked worktrees
}

// setupTestEnv creates a git repository with one commit and an uncommitted
// store so linked worktrees resolve back to it.
func setupTestEnv(t *testing.T, providers ...string) *testEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("AGENTSYNC_STORE", "")

	base := t.TempDir()
	env := &testEnv{MainDir: filepath.Join(base, "main"), Base: base}
	if err := os.MkdirAll(env.MainDir, 0755); err != nil {
		t.Fatalf("creating main worktree: %v", err)
	}

	git(t, env.MainDir, "init", "-q", "-b", "main")
	writeFile(t, filepath.Join(env.MainDir, "README.md"), "# demo\n")
	git(t, env.MainDir, "add", "README.md")
	git(t, env.MainDir, "-c", "user.name=test", "-c", "user.email=test@example.com", "commit", "-q", "-m", "init")

	if len(providers) == 0 {
		providers = []string{"claude", "cursor"}
	}
	if _, err := store.Init(afero.NewOsFs(), env.MainDir, providers, io.Discard); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	return env
}

// addWorktree creates a linked worktree named name on a new branch.
func (env *testEnv) addWorktree(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(env.Base, name)
	git(t, env.MainDir, "worktree", "add", "-q", "-b", name, dir)
	return dir
}

func (env *testEnv) storeFile(t *testing.T, rel, content string) {
	t.Helper()
	writeFile(t, filepath.Join(env.MainDir, ".agentsync", rel), content)
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func newEngine(start string) *engine.Engine {
	var s config.Settings
	s.Durability = "sync"
	s.Lock.Timeout = 10 * time.Second
	s.Retry.BaseDelay = 5 * time.Millisecond
	s.Retry.MaxDelay = 50 * time.Millisecond
	s.Workers = 4
	return engine.New(engine.Options{Start: start, Settings: s})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s to exist: %v", path, err)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err == nil {
		t.Errorf("expected %s to be absent", path)
	}
}
