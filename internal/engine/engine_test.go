package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx-labs/agentsync/internal/config"
	"github.com/agentx-labs/agentsync/internal/drift"
	"github.com/agentx-labs/agentsync/internal/platform"
	"github.com/agentx-labs/agentsync/internal/store"
)

const r1 = `id: r1
description: Keep functions short
instruction: |
  Prefer functions under forty lines.
`

type repo struct {
	t    *testing.T
	root string
}

func newRepo(t *testing.T) *repo {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	_, err := store.Init(afero.NewOsFs(), root, []string{"claude", "cursor"}, io.Discard)
	require.NoError(t, err)
	r := &repo{t: t, root: root}
	r.write(".agentsync/rules/r1.yaml", r1)
	return r
}

func (r *repo) write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.root, rel)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

func (r *repo) read(rel string) string {
	r.t.Helper()
	data, err := os.ReadFile(filepath.Join(r.root, rel))
	require.NoError(r.t, err)
	return string(data)
}

func (r *repo) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(r.root, rel))
	return err == nil
}

func (r *repo) engine(mut ...func(*Options)) *Engine {
	opts := Options{Start: r.root, Settings: testSettings()}
	for _, m := range mut {
		m(&opts)
	}
	return New(opts)
}

func testSettings() config.Settings {
	var s config.Settings
	s.Durability = "none"
	s.Lock.Timeout = time.Second
	s.Retry.BaseDelay = 5 * time.Millisecond
	s.Retry.MaxDelay = 20 * time.Millisecond
	s.Workers = 2
	s.Log.Level = "info"
	s.Log.Format = "json"
	return s
}

func status(t *testing.T, o *Outcome, path string) drift.Status {
	t.Helper()
	it, ok := o.Report.Get(path)
	require.True(t, ok, "no report item for %s", path)
	return it.Status
}

func TestMissingBecomesInSync(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	out, err := r.engine().Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, drift.StatusMissing, status(t, out, "CLAUDE.md"))
	assert.Equal(t, drift.StatusMissing, status(t, out, ".cursor/rules/r1.mdc"))
	assert.Equal(t, ExitDrift, out.Code(true))
	assert.False(t, r.exists("CLAUDE.md"), "check never writes")

	out, err = r.engine().Sync(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CLAUDE.md", ".cursor/rules/r1.mdc"}, out.Result.Written)
	assert.Equal(t, ExitOK, out.Code(false))
	assert.Contains(t, r.read("CLAUDE.md"), "<!-- agentsync:begin rule.r1 -->\n## r1\n")

	out, err = r.engine().Check(ctx)
	require.NoError(t, err)
	assert.False(t, out.Report.Drifted())
	assert.Equal(t, ExitOK, out.Code(true))

	// A second sync is a no-op.
	out, err = r.engine().Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, out.Result.Committed())
}

func TestForeignFileIsAdopted(t *testing.T) {
	r := newRepo(t)
	r.write("CLAUDE.md", "# Team notes\n")
	r.write(".cursor/rules/r1.mdc", "hand written\n")

	out, err := r.engine().Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, drift.StatusModified, status(t, out, "CLAUDE.md"))
	assert.Equal(t, drift.StatusModified, status(t, out, ".cursor/rules/r1.mdc"))

	_, err = r.engine().Sync(context.Background())
	require.NoError(t, err)
	claude := r.read("CLAUDE.md")
	assert.True(t, strings.HasPrefix(claude, "# Team notes\n\n<!-- agentsync:begin rule.r1 -->"), claude)
	assert.NotContains(t, r.read(".cursor/rules/r1.mdc"), "hand written")
}

func TestHandEditIsAConflict(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.engine().Sync(ctx)
	require.NoError(t, err)

	edited := strings.Replace(r.read("CLAUDE.md"), "forty", "fifty", 1)
	r.write("CLAUDE.md", edited)

	out, err := r.engine().Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, drift.StatusForeignConflict, status(t, out, "CLAUDE.md"))

	out, err = r.engine().Sync(ctx)
	require.NoError(t, err)
	require.Len(t, out.Result.Skipped, 1)
	assert.Equal(t, ExitConflicts, out.Code(false))
	assert.Equal(t, edited, r.read("CLAUDE.md"), "conflicting bytes are untouched")

	out, err = r.engine(func(o *Options) { o.Force = true }).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CLAUDE.md"}, out.Result.Written)
	assert.Contains(t, r.read("CLAUDE.md"), "forty")
}

func TestUserEditOutsideBlockIsNotAConflict(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.engine().Sync(ctx)
	require.NoError(t, err)

	r.write("CLAUDE.md", r.read("CLAUDE.md")+"\nMy own notes.\n")
	out, err := r.engine().Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, out.Result.Skipped)
	assert.Contains(t, r.read("CLAUDE.md"), "My own notes.")
}

func TestRemovedRuleIsCleanedUp(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	r.write("CLAUDE.md", "# Team notes\n")
	_, err := r.engine().Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(r.root, ".agentsync/rules/r1.yaml")))
	out, err := r.engine().Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".cursor/rules/r1.mdc"}, out.Result.Deleted)
	assert.False(t, r.exists(".cursor/rules/r1.mdc"))
	assert.Equal(t, "# Team notes\n", r.read("CLAUDE.md"))

	m, err := store.LoadManifest(afero.NewOsFs(), filepath.Join(r.root, ".agentsync"), store.MainWorktreeID)
	require.NoError(t, err)
	assert.Empty(t, m.Targets)
}

func TestProviderSelection(t *testing.T) {
	r := newRepo(t)
	out, err := r.engine(func(o *Options) { o.Providers = []string{"cursor"} }).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{".cursor/rules/r1.mdc"}, out.Result.Written)
	assert.False(t, r.exists("CLAUDE.md"))

	_, err = r.engine(func(o *Options) { o.Providers = []string{"zed"} }).Check(context.Background())
	assert.ErrorIs(t, err, ErrUnknownSelection)
	assert.Equal(t, ExitValidation, Classify(err))
}

func TestSelectionKeepsOtherProvidersFiles(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.engine().Sync(ctx)
	require.NoError(t, err)

	out, err := r.engine(func(o *Options) { o.Providers = []string{"cursor"} }).Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, out.Result.Deleted)
	assert.True(t, r.exists("CLAUDE.md"), "a provider left out by the selection is not cleaned up")
}

func TestRemovedProviderIsCleanedUp(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.engine().Sync(ctx)
	require.NoError(t, err)
	require.True(t, r.exists(".cursor/rules/r1.mdc"))

	r.write(".agentsync/store.yaml", "version: 1\nproviders: [claude]\n")
	out, err := r.engine().Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, drift.StatusOrphaned, status(t, out, ".cursor/rules/r1.mdc"))
	assert.Equal(t, ExitDrift, out.Code(true))

	out, err = r.engine().Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".cursor/rules/r1.mdc"}, out.Result.Deleted)
	assert.False(t, r.exists(".cursor/rules/r1.mdc"))
	assert.True(t, r.exists("CLAUDE.md"))

	m, err := store.LoadManifest(afero.NewOsFs(), filepath.Join(r.root, ".agentsync"), store.MainWorktreeID)
	require.NoError(t, err)
	assert.NotContains(t, m.Paths(), ".cursor/rules/r1.mdc")
}

func TestBrokenOrphanedSettingsIsAConflict(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	r.write(".agentsync/store.yaml", "version: 1\nproviders: [claude, cursor]\nsettings:\n  claude:\n    model: opus\n")
	_, err := r.engine().Sync(ctx)
	require.NoError(t, err)
	require.Contains(t, r.read(".claude/settings.json"), `"model"`)

	broken := `{ "model": "opus", broken`
	r.write(".claude/settings.json", broken)
	r.write(".agentsync/store.yaml", "version: 1\nproviders: [claude, cursor]\n")
	r.write(".agentsync/rules/r2.yaml", "id: r2\ndescription: Name things well\ninstruction: Use descriptive names.\n")

	out, err := r.engine().Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, drift.StatusForeignConflict, status(t, out, ".claude/settings.json"))
	assert.Equal(t, drift.StatusMissing, status(t, out, ".cursor/rules/r2.mdc"))

	out, err = r.engine().Sync(ctx)
	require.NoError(t, err)
	require.Len(t, out.Result.Skipped, 1)
	assert.Equal(t, ".claude/settings.json", out.Result.Skipped[0].Path)
	assert.Contains(t, out.Result.Written, ".cursor/rules/r2.mdc", "other targets are still processed")
	assert.Equal(t, ExitConflicts, out.Code(false))
	assert.Equal(t, broken, r.read(".claude/settings.json"))

	out, err = r.engine(func(o *Options) { o.Force = true }).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{".claude/settings.json"}, out.Result.Deleted)
	assert.False(t, r.exists(".claude/settings.json"))
}

func TestValidationFailureWritesNothing(t *testing.T) {
	r := newRepo(t)
	r.write(".agentsync/rules/bad.yaml", "id: [unterminated\n")

	_, err := r.engine().Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitValidation, Classify(err))
	assert.False(t, r.exists("CLAUDE.md"))
}

func TestStoreNotFound(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	_, err := New(Options{Start: dir, Settings: testSettings()}).Check(context.Background())
	assert.Equal(t, ExitNotFound, Classify(err))
}

func TestLockTimeout(t *testing.T) {
	r := newRepo(t)
	settings := testSettings()
	settings.Lock.Timeout = 100 * time.Millisecond

	held, err := store.AcquireLock(context.Background(), filepath.Join(r.root, ".agentsync"), engineRetry(settings))
	require.NoError(t, err)
	defer held.Release()

	_, err = r.engine(func(o *Options) { o.Settings = settings }).Sync(context.Background())
	assert.Equal(t, ExitLock, Classify(err))

	// Check without the lock still reads.
	out, err := r.engine(func(o *Options) { o.NoLock = true }).Check(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Report.Drifted())
}

func TestPhaseTrace(t *testing.T) {
	r := newRepo(t)

	e := r.engine()
	_, err := e.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Phase{
		PhaseResolving, PhaseLocked, PhaseLoading, PhaseRendering, PhaseDiffing,
		PhaseReporting, PhaseUnlocking, PhaseIdle,
	}, e.Trace())

	_, err = e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Phase{
		PhaseResolving, PhaseLocked, PhaseLoading, PhaseRendering, PhaseDiffing,
		PhaseWriting, PhaseCommitting, PhaseUnlocking, PhaseIdle,
	}, e.Trace())

	r.write(".agentsync/rules/bad.yaml", "id: [unterminated\n")
	_, err = e.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, []Phase{PhaseResolving, PhaseLocked, PhaseLoading, PhaseUnlocking, PhaseIdle}, e.Trace())
}

func TestDoctorSweepsTemps(t *testing.T) {
	r := newRepo(t)
	_, err := r.engine().Sync(context.Background())
	require.NoError(t, err)
	r.write(".cursor/rules/.r1.mdc.dead.agentsync-tmp", "stale\n")

	d, err := r.engine().Doctor(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, d.Temps, 1)
	assert.False(t, d.Healthy())
	assert.Equal(t, 2, d.ManifestTargets)
	assert.Equal(t, "classic", d.Location.ModeName)

	d, err = r.engine().Doctor(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, d.Swept)
	assert.True(t, d.Healthy())
	assert.False(t, r.exists(".cursor/rules/.r1.mdc.dead.agentsync-tmp"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ExitOK, Classify(nil))
	assert.Equal(t, ExitFailure, Classify(errors.New("boom")))
	assert.Equal(t, ExitLock, Classify(store.ErrLockUnavailable))
	assert.Equal(t, ExitStorage, Classify(&os.PathError{Op: "open", Path: "x", Err: os.ErrPermission}))
}

func engineRetry(s config.Settings) platform.RetryPolicy {
	return New(Options{Settings: s}).retryPolicy(s.Lock.Timeout)
}
