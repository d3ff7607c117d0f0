package drift

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/spf13/afero"

	"github.com/agentx-labs/agentsync/internal/block"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/platform"
)

// Status classifies one target.
type Status string

const (
	StatusMissing         Status = "missing"
	StatusInSync          Status = "in-sync"
	StatusModified        Status = "modified"
	StatusForeignConflict Status = "foreign-conflict"
	// StatusOrphaned is a planned deletion whose file is untouched since
	// the engine wrote it.
	StatusOrphaned Status = "orphaned"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusMissing, StatusModified, StatusOrphaned, StatusForeignConflict, StatusInSync}

// Record is the last managed write of a path, as kept in the manifest.
type Record struct {
	Fingerprint        string
	ManagedFingerprint string
	Keys               []string
}

// Lookup returns the manifest record for a worktree-relative path.
type Lookup func(path string) (Record, bool)

// Item is the classification of one target.
type Item struct {
	Path     string      `json:"path"`
	Provider string      `json:"provider"`
	Action   plan.Action `json:"action"`
	Status   Status      `json:"status"`
	Reason   string      `json:"reason,omitempty"`
}

// Report is the outcome of a diff, sorted by path.
type Report struct {
	Items []Item `json:"items"`
}

// Diff classifies every entry of p against the files under root.
func Diff(fsys afero.Fs, root string, p *plan.Plan, lookup Lookup) (*Report, error) {
	if lookup == nil {
		lookup = func(string) (Record, bool) { return Record{}, false }
	}
	r := &Report{Items: make([]Item, 0, p.Len())}
	for _, e := range p.Entries() {
		item, err := classify(fsys, root, e, lookup)
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, item)
	}
	sort.Slice(r.Items, func(i, j int) bool { return r.Items[i].Path < r.Items[j].Path })
	return r, nil
}

func classify(fsys afero.Fs, root string, e *plan.Entry, lookup Lookup) (Item, error) {
	item := Item{Path: e.Path, Provider: e.Provider, Action: e.Action}
	conflict := func(reason string) (Item, error) {
		item.Status = StatusForeignConflict
		item.Reason = reason
		return item, nil
	}

	abs, err := platform.Within(root, e.Path)
	if err != nil {
		return item, err
	}
	if err := platform.CheckNoSymlink(fsys, root, e.Path); err != nil {
		if errors.Is(err, platform.ErrSymlinkPath) {
			return conflict("path traverses a symlink")
		}
		return item, err
	}

	data, err := afero.ReadFile(fsys, abs)
	absent := errors.Is(err, fs.ErrNotExist)
	if err != nil && !absent {
		return item, fmt.Errorf("reading %s: %w", e.Path, err)
	}

	rec, recorded := lookup(e.Path)

	if e.Action == plan.ActionDelete {
		switch {
		case absent:
			item.Status = StatusInSync
		case e.Conflict != "":
			return conflict(e.Conflict)
		case !recorded:
			return conflict("no record of a managed write")
		default:
			managed, err := managedFingerprint(e, data, rec.Keys)
			if err != nil {
				return conflict(err.Error())
			}
			if managed != rec.ManagedFingerprint {
				return conflict("edited since the last sync")
			}
			item.Status = StatusOrphaned
		}
		return item, nil
	}

	switch {
	case absent:
		item.Status = StatusMissing
	case e.Conflict != "":
		return conflict(e.Conflict)
	case plan.Fingerprint(data) == e.Fingerprint:
		item.Status = StatusInSync
	case recorded:
		managed, err := managedFingerprint(e, data, rec.Keys)
		if err != nil {
			return conflict(err.Error())
		}
		if managed != rec.ManagedFingerprint {
			return conflict("managed content edited since the last sync")
		}
		item.Status = StatusModified
	default:
		item.Status = StatusModified
	}
	return item, nil
}

func managedFingerprint(e *plan.Entry, data []byte, keys []string) (string, error) {
	managed, err := block.For(e.Format, e.Strategy).Managed(data, keys)
	if err != nil {
		return "", fmt.Errorf("unreadable managed region: %w", err)
	}
	return plan.Fingerprint(managed), nil
}

// Get returns the item for path.
func (r *Report) Get(path string) (Item, bool) {
	i := sort.Search(len(r.Items), func(i int) bool { return r.Items[i].Path >= path })
	if i < len(r.Items) && r.Items[i].Path == path {
		return r.Items[i], true
	}
	return Item{}, false
}

// Summary counts items per status.
func (r *Report) Summary() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, it := range r.Items {
		counts[it.Status]++
	}
	return counts
}

// Conflicts returns the items in ForeignConflict.
func (r *Report) Conflicts() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Status == StatusForeignConflict {
			out = append(out, it)
		}
	}
	return out
}

// Drifted reports whether any target is not in sync.
func (r *Report) Drifted() bool {
	for _, it := range r.Items {
		if it.Status != StatusInSync {
			return true
		}
	}
	return false
}
