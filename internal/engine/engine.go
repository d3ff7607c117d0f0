package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/agentx-labs/agentsync/internal/config"
	"github.com/agentx-labs/agentsync/internal/drift"
	"github.com/agentx-labs/agentsync/internal/logging"
	"github.com/agentx-labs/agentsync/internal/model"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/platform"
	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/agentx-labs/agentsync/internal/render"
	"github.com/agentx-labs/agentsync/internal/store"
	"github.com/agentx-labs/agentsync/internal/txn"
)

var (
	// ErrUnknownSelection is returned when a requested provider is not
	// configured in store.yaml.
	ErrUnknownSelection = errors.New("provider not configured in store")

	// ErrManifest wraps failures to persist the manifest after a commit.
	ErrManifest = errors.New("saving manifest")
)

// Options configures a pass.
type Options struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
	// Start is where store resolution begins.
	Start string
	// Providers restricts the pass to some configured providers.
	Providers []string
	// Force overwrites ForeignConflict targets.
	Force bool
	// NoLock lets Check read without the store lock.
	NoLock   bool
	Settings config.Settings
	Log      zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome is what a pass produced. Result is nil for Check.
type Outcome struct {
	PassID   string          `json:"pass_id"`
	Location *store.Location `json:"store"`
	Report   *drift.Report   `json:"report,omitempty"`
	Result   *txn.Result     `json:"result,omitempty"`
}

// Code returns the exit code of a pass that returned no error.
func (o *Outcome) Code(check bool) int {
	switch {
	case check && o.Report != nil && o.Report.Drifted():
		return ExitDrift
	case o.Result != nil && len(o.Result.Skipped) > 0:
		return ExitConflicts
	}
	return ExitOK
}

// Engine runs passes.
type Engine struct {
	opts  Options
	log   zerolog.Logger
	trace []Phase
}

// New returns an engine for opts.
func New(opts Options) *Engine {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Start == "" {
		opts.Start = "."
	}
	if opts.Settings.Workers < 1 {
		opts.Settings.Workers = 1
	}
	return &Engine{opts: opts, log: logging.Component(opts.Log, "engine")}
}

// Trace returns the phases the last pass went through.
func (e *Engine) Trace() []Phase { return append([]Phase(nil), e.trace...) }

func (e *Engine) enter(p Phase) {
	e.trace = append(e.trace, p)
	e.log.Debug().Str("phase", p.String()).Msg("phase")
}

// Check reports drift without writing.
func (e *Engine) Check(ctx context.Context) (*Outcome, error) {
	return e.run(ctx, false)
}

// Sync brings every selected target in line with the model.
func (e *Engine) Sync(ctx context.Context) (*Outcome, error) {
	return e.run(ctx, true)
}

// pass holds what the loading steps produced.
type pass struct {
	loc         *store.Location
	model       *model.Model
	descriptors []provider.Descriptor
	manifest    *store.Manifest
	plan        *plan.Plan
}

func (e *Engine) run(ctx context.Context, apply bool) (out *Outcome, err error) {
	e.trace = nil
	passID := uuid.NewString()
	e.log = logging.WithPass(logging.Component(e.opts.Log, "engine"), passID)
	out = &Outcome{PassID: passID}

	e.enter(PhaseResolving)
	loc, err := store.Resolve(e.opts.Fs, e.opts.Start)
	if err != nil {
		e.enter(PhaseIdle)
		return nil, err
	}
	out.Location = loc
	e.log.Debug().Str("store", loc.Root).Str("worktree", loc.Worktree).Str("mode", loc.ModeName).Msg("resolved")

	if apply || !e.opts.NoLock {
		lock, err := store.AcquireLock(ctx, loc.Root, e.retryPolicy(e.opts.Settings.Lock.Timeout))
		if err != nil {
			e.enter(PhaseIdle)
			return nil, err
		}
		e.enter(PhaseLocked)
		defer func() {
			e.enter(PhaseUnlocking)
			if rerr := lock.Release(); rerr != nil && err == nil {
				err = fmt.Errorf("releasing store lock: %w", rerr)
			}
			e.enter(PhaseIdle)
		}()
	} else {
		defer e.enter(PhaseIdle)
	}

	p := &pass{loc: loc}
	e.enter(PhaseLoading)
	if err := e.load(p); err != nil {
		return nil, err
	}

	e.enter(PhaseRendering)
	if err := e.render(p); err != nil {
		return nil, err
	}

	e.enter(PhaseDiffing)
	out.Report, err = drift.Diff(e.opts.Fs, loc.Worktree, p.plan, p.manifest.Lookup)
	if err != nil {
		return nil, err
	}
	e.log.Info().Interface("summary", out.Report.Summary()).Msg("diffed")

	if !apply {
		e.enter(PhaseReporting)
		return out, nil
	}

	e.enter(PhaseWriting)
	sync := e.opts.Settings.Durability != string(txn.DurabilityNone)
	out.Result, err = txn.Apply(ctx, e.opts.Fs, loc.Worktree, p.plan, out.Report, txn.Policy{
		PassID:     passID,
		Durability: txn.Durability(e.opts.Settings.Durability),
		Force:      e.opts.Force,
		Retry:      e.retryPolicy(e.opts.Settings.Lock.Timeout),
		Log:        logging.Component(e.log, "txn"),
	})
	if out.Result == nil {
		return out, err
	}

	e.enter(PhaseCommitting)
	if e.updateManifest(p, out.Result, passID) {
		if serr := p.manifest.Save(e.opts.Fs, loc.Root, sync); serr != nil {
			serr = fmt.Errorf("%w: %w", ErrManifest, serr)
			return out, errors.Join(err, serr)
		}
	}
	if err != nil {
		return out, err
	}
	e.log.Info().
		Int("written", len(out.Result.Written)).
		Int("deleted", len(out.Result.Deleted)).
		Int("skipped", len(out.Result.Skipped)).
		Msg("committed")
	return out, nil
}

func (e *Engine) load(p *pass) error {
	m, err := model.Load(e.opts.Fs, p.loc.Root)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	catalog, err := provider.Load(e.opts.Fs, p.loc.Root)
	if err != nil {
		return err
	}
	if err := m.CheckProviders(catalog.Has); err != nil {
		return err
	}

	ids, err := e.selection(m.Store.Providers)
	if err != nil {
		return err
	}
	if p.descriptors, err = catalog.Select(ids); err != nil {
		return err
	}
	if p.manifest, err = store.LoadManifest(e.opts.Fs, p.loc.Root, p.loc.WorktreeID); err != nil {
		return err
	}
	p.model = m
	return nil
}

// selection returns the configured providers, narrowed to Options.Providers.
func (e *Engine) selection(configured []string) ([]string, error) {
	if len(e.opts.Providers) == 0 {
		return configured, nil
	}
	known := make(map[string]bool, len(configured))
	for _, id := range configured {
		known[id] = true
	}
	var unknown []string
	for _, id := range e.opts.Providers {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelection, strings.Join(unknown, ", "))
	}
	return e.opts.Providers, nil
}

func (e *Engine) render(p *pass) error {
	active, err := p.model.Activate()
	if err != nil {
		return err
	}

	rctx := render.Context{
		Projects:    p.model.Store.ProjectList(),
		AssetRoot:   assetRoot(p.loc),
		Read:        e.reader(p.loc.Worktree),
		ManagedKeys: p.manifest.Keys,
	}

	plans := make([]*plan.Plan, len(p.descriptors))
	var g errgroup.Group
	g.SetLimit(e.opts.Settings.Workers)
	for i, d := range p.descriptors {
		g.Go(func() error {
			rp, err := render.Render(active, d, rctx)
			if err != nil {
				return err
			}
			plans[i] = rp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.plan = plan.New()
	for _, rp := range plans {
		if err := p.plan.Merge(rp); err != nil {
			return err
		}
	}

	// Providers left out by the selection keep their files. Providers gone
	// from store.yaml have their targets cleaned up.
	skip := make(map[string]bool)
	for _, id := range p.model.Store.Providers {
		skip[id] = true
	}
	for _, d := range p.descriptors {
		delete(skip, d.ID)
	}
	if err := render.Orphans(p.plan, p.manifest.Records(skip), rctx); err != nil {
		return err
	}
	e.log.Debug().Int("targets", p.plan.Len()).Int("providers", len(p.descriptors)).Msg("rendered")
	return nil
}

func (e *Engine) reader(worktree string) render.Reader {
	return func(rel string) ([]byte, error) {
		abs, err := platform.Within(worktree, rel)
		if err != nil {
			return nil, err
		}
		return afero.ReadFile(e.opts.Fs, abs)
	}
}

// updateManifest records what the pass left on disk and reports whether
// anything changed. Conflicting targets keep their old record so they stay
// conflicts.
func (e *Engine) updateManifest(p *pass, res *txn.Result, passID string) bool {
	now := e.opts.Now()
	changed := false
	settle := func(path string) {
		entry, ok := p.plan.Get(path)
		if !ok {
			return
		}
		if entry.Orphan {
			if _, recorded := p.manifest.Targets[path]; recorded {
				p.manifest.Forget(path)
				changed = true
			}
			return
		}
		p.manifest.Record(entry, passID, now)
		changed = true
	}
	for _, path := range res.Committed() {
		settle(path)
	}
	for _, path := range res.Unchanged {
		if entry, ok := p.plan.Get(path); ok && !entry.Orphan {
			if rec, ok := p.manifest.Targets[path]; ok && rec.Fingerprint == entry.Fingerprint {
				continue
			}
		}
		settle(path)
	}
	return changed
}

func (e *Engine) retryPolicy(deadline time.Duration) platform.RetryPolicy {
	p := platform.DefaultRetryPolicy()
	if e.opts.Settings.Retry.BaseDelay > 0 {
		p.BaseDelay = e.opts.Settings.Retry.BaseDelay
	}
	if e.opts.Settings.Retry.MaxDelay > 0 {
		p.MaxDelay = e.opts.Settings.Retry.MaxDelay
	}
	p.Deadline = deadline
	p.Notify = func(err error, next time.Duration) {
		e.log.Debug().Err(err).Dur("retry_in", next).Msg("retrying")
	}
	return p
}

// assetRoot is the store directory as seen from the worktree root.
func assetRoot(loc *store.Location) string {
	rel, err := filepath.Rel(loc.Worktree, loc.Root)
	if err != nil {
		return filepath.ToSlash(loc.Root)
	}
	return filepath.ToSlash(rel)
}
