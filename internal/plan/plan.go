package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agentx-labs/agentsync/internal/provider"
)

// ErrDuplicateTarget is returned when two entries claim the same path.
var ErrDuplicateTarget = errors.New("duplicate target path")

// Action is what the writer should do with a target.
type Action string

const (
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Entry is the expected state of one target file.
type Entry struct {
	// Path is worktree-relative and slash-separated.
	Path     string
	Provider string
	Format   provider.Format
	Strategy provider.Strategy
	Action   Action

	// Content is the full expected file. Empty for deletes.
	Content     []byte
	Fingerprint string

	// ManagedFingerprint covers only the regions the engine owns.
	ManagedFingerprint string

	// Keys lists managed top-level keys for json and yaml merge targets.
	Keys []string

	// Sources lists the canonical entries rendered into this target.
	Sources []string

	// Conflict is set when the existing file could not be merged into, or
	// for an orphan, could not have its managed content removed. Content
	// then holds a fresh document (or the entry deletes), applied only when
	// forced.
	Conflict string

	// Orphan marks cleanup of a target an earlier pass managed and this
	// pass no longer renders. Its manifest record is dropped once handled.
	Orphan bool
}

// Plan is the set of entries for one pass, keyed by path.
type Plan struct {
	entries map[string]*Entry
}

// New returns an empty plan.
func New() *Plan {
	return &Plan{entries: make(map[string]*Entry)}
}

// Add inserts e. A second entry for the same path is an error naming both
// providers.
func (p *Plan) Add(e *Entry) error {
	if prev, ok := p.entries[e.Path]; ok {
		return fmt.Errorf("%w: %s (providers %s and %s)", ErrDuplicateTarget, e.Path, prev.Provider, e.Provider)
	}
	p.entries[e.Path] = e
	return nil
}

// Merge adds every entry of other.
func (p *Plan) Merge(other *Plan) error {
	var errs []error
	for _, e := range other.Entries() {
		if err := p.Add(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the entry for path.
func (p *Plan) Get(path string) (*Entry, bool) {
	e, ok := p.entries[path]
	return e, ok
}

// Len returns the number of entries.
func (p *Plan) Len() int { return len(p.entries) }

// Paths returns all target paths in sorted order.
func (p *Plan) Paths() []string {
	paths := make([]string, 0, len(p.entries))
	for path := range p.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns all entries sorted by path.
func (p *Plan) Entries() []*Entry {
	out := make([]*Entry, 0, len(p.entries))
	for _, path := range p.Paths() {
		out = append(out, p.entries[path])
	}
	return out
}
