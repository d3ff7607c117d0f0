package engine

import (
	"context"
	"path"

	"github.com/agentx-labs/agentsync/internal/model"
	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/agentx-labs/agentsync/internal/store"
	"github.com/agentx-labs/agentsync/internal/txn"
)

// Diagnosis is the health of a store as seen from one worktree.
type Diagnosis struct {
	Location        *store.Location `json:"store"`
	LockHeld        bool            `json:"lock_held"`
	CatalogVersion  string          `json:"catalog_version"`
	ManifestTargets int             `json:"manifest_targets"`
	Temps           []string        `json:"temps"`
	Swept           bool            `json:"swept"`
	Problems        []string        `json:"problems"`
}

// Healthy reports whether nothing needs attention.
func (d *Diagnosis) Healthy() bool {
	return len(d.Problems) == 0 && (len(d.Temps) == 0 || d.Swept)
}

// Doctor inspects the store. With fix set it takes the lock and removes
// temp files left by crashed passes.
func (e *Engine) Doctor(ctx context.Context, fix bool) (*Diagnosis, error) {
	loc, err := store.Resolve(e.opts.Fs, e.opts.Start)
	if err != nil {
		return nil, err
	}
	d := &Diagnosis{Location: loc}

	if d.LockHeld, err = store.Held(loc.Root); err != nil {
		d.Problems = append(d.Problems, "lock: "+err.Error())
	}

	if m, err := model.Load(e.opts.Fs, loc.Root); err != nil {
		d.Problems = append(d.Problems, err.Error())
	} else if err := m.Validate(); err != nil {
		d.Problems = append(d.Problems, err.Error())
	} else if catalog, err := provider.Load(e.opts.Fs, loc.Root); err != nil {
		d.Problems = append(d.Problems, err.Error())
	} else {
		d.CatalogVersion = catalog.Version
		if err := m.CheckProviders(catalog.Has); err != nil {
			d.Problems = append(d.Problems, err.Error())
		}
	}

	manifest, err := store.LoadManifest(e.opts.Fs, loc.Root, loc.WorktreeID)
	if err != nil {
		return nil, err
	}
	d.ManifestTargets = len(manifest.Targets)

	dirs := []string{""}
	for _, p := range manifest.Paths() {
		dirs = append(dirs, path.Dir(p))
	}
	if d.Temps, err = txn.Temps(e.opts.Fs, loc.Worktree, dirs); err != nil {
		return nil, err
	}
	if !fix || len(d.Temps) == 0 {
		return d, nil
	}

	lock, err := store.AcquireLock(ctx, loc.Root, e.retryPolicy(e.opts.Settings.Lock.Timeout))
	if err != nil {
		return d, err
	}
	defer lock.Release()
	if _, err := txn.Sweep(e.opts.Fs, loc.Worktree, dirs); err != nil {
		return d, err
	}
	d.Swept = true
	return d, nil
}
