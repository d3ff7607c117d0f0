package txn

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentx-labs/agentsync/internal/branding"
	"github.com/agentx-labs/agentsync/internal/drift"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/platform"
)

// Durability selects whether staged files and directories are flushed to
// stable storage.
type Durability string

const (
	DurabilitySync Durability = "sync"
	DurabilityNone Durability = "none"
)

// Policy controls one apply.
type Policy struct {
	// PassID names the temp files of this pass.
	PassID     string
	Durability Durability
	// Force writes ForeignConflict targets instead of skipping them.
	Force bool
	Retry platform.RetryPolicy
	Log   zerolog.Logger
}

// Skip is a target left alone because of a conflict.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result lists what an apply did.
type Result struct {
	PassID    string   `json:"pass_id"`
	Written   []string `json:"written"`
	Deleted   []string `json:"deleted"`
	Skipped   []Skip   `json:"skipped"`
	Unchanged []string `json:"unchanged"`
}

// Committed returns every path whose new state landed, sorted.
func (r *Result) Committed() []string {
	out := append(append([]string(nil), r.Written...), r.Deleted...)
	sort.Strings(out)
	return out
}

type op struct {
	entry  *plan.Entry
	target string
	tmp    string
	mode   os.FileMode
}

// Apply stages and commits every entry of p that the report says needs
// work. Cancelling ctx does not interrupt the pass once it has started.
func Apply(ctx context.Context, fsys afero.Fs, root string, p *plan.Plan, report *drift.Report, policy Policy) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if policy.Durability == "" {
		policy.Durability = DurabilitySync
	}
	res := &Result{PassID: policy.PassID}

	var ops []*op
	for _, path := range p.Paths() {
		e, _ := p.Get(path)
		item, ok := report.Get(path)
		if !ok {
			return nil, fmt.Errorf("no drift status for %s", path)
		}
		switch item.Status {
		case drift.StatusInSync:
			res.Unchanged = append(res.Unchanged, path)
			continue
		case drift.StatusForeignConflict:
			if !policy.Force {
				res.Skipped = append(res.Skipped, Skip{Path: path, Reason: item.Reason})
				policy.Log.Warn().Str("path", path).Str("reason", item.Reason).Msg("skipping conflicting target")
				continue
			}
		}
		target, err := platform.Within(root, path)
		if err != nil {
			return nil, err
		}
		ops = append(ops, &op{entry: e, target: target})
	}

	if err := stage(ctx, fsys, root, ops, policy); err != nil {
		return nil, err
	}
	return commit(ctx, fsys, ops, res, policy)
}

func stage(ctx context.Context, fsys afero.Fs, root string, ops []*op, policy Policy) error {
	var staged []*op
	abort := func(path string, err error) error {
		for _, o := range staged {
			_ = fsys.Remove(o.tmp)
		}
		return &StageError{Path: path, Err: err}
	}

	for _, o := range ops {
		if err := platform.CheckNoSymlink(fsys, root, o.entry.Path); err != nil {
			return abort(o.entry.Path, err)
		}
		if o.entry.Action == plan.ActionDelete {
			if err := verifyDelete(fsys, o.target); err != nil {
				return abort(o.entry.Path, err)
			}
			continue
		}

		mode, err := platform.ModeOf(fsys, o.target)
		if err != nil {
			return abort(o.entry.Path, err)
		}
		o.mode = mode
		o.tmp = tempName(o.target, policy.PassID)
		err = retry(ctx, policy, func() error {
			return writeTemp(fsys, o.tmp, o.entry.Content, o.mode, policy.Durability)
		})
		if err != nil {
			_ = fsys.Remove(o.tmp)
			return abort(o.entry.Path, err)
		}
		staged = append(staged, o)
		policy.Log.Debug().Str("path", o.entry.Path).Str("tmp", filepath.Base(o.tmp)).Msg("staged")
	}
	return nil
}

func verifyDelete(fsys afero.Fs, target string) error {
	info, err := fsys.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", target)
	}
	return nil
}

func writeTemp(fsys afero.Fs, tmp string, data []byte, mode os.FileMode, durability Durability) error {
	if err := fsys.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if durability == DurabilitySync {
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	// OpenFile honours the umask; force the target's mode.
	return platform.Chmod(fsys, tmp, mode)
}

func commit(ctx context.Context, fsys afero.Fs, ops []*op, res *Result, policy Policy) (*Result, error) {
	dirs := make(map[string]bool)
	for i, o := range ops {
		path := o.entry.Path
		var err error
		if o.entry.Action == plan.ActionDelete {
			err = retry(ctx, policy, func() error {
				if err := fsys.Remove(o.target); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				return nil
			})
		} else {
			err = retry(ctx, policy, func() error { return fsys.Rename(o.tmp, o.target) })
		}
		if err != nil {
			pending := make([]string, 0, len(ops)-i-1)
			for _, rest := range ops[i:] {
				if rest.tmp != "" {
					_ = fsys.Remove(rest.tmp)
				}
				if rest != o {
					pending = append(pending, rest.entry.Path)
				}
			}
			policy.Log.Error().Err(err).Str("path", path).Msg("commit failed")
			return res, &PartialCommitError{
				Committed: res.Committed(),
				Failed:    path,
				Pending:   pending,
				Err:       err,
			}
		}

		if o.entry.Action == plan.ActionDelete {
			res.Deleted = append(res.Deleted, path)
		} else {
			res.Written = append(res.Written, path)
		}
		dirs[filepath.Dir(o.target)] = true
		policy.Log.Debug().Str("path", path).Str("action", string(o.entry.Action)).Msg("committed")
	}

	if policy.Durability == DurabilitySync {
		for _, dir := range sortedDirs(dirs) {
			if err := platform.SyncDir(fsys, dir); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func retry(ctx context.Context, policy Policy, fn func() error) error {
	return platform.Retry(ctx, policy.Retry, platform.IsTransient, fn)
}

// TempSuffix ends the name of every staged file.
func TempSuffix() string { return "." + branding.Marker() + "-tmp" }

func tempName(target, passID string) string {
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+"."+passID+TempSuffix())
}

func sortedDirs(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
