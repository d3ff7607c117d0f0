package render

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/agentsync/internal/block"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/provider"
)

// Record is what an earlier pass left in a target, as kept in the manifest.
type Record struct {
	Path     string
	Provider string
	Format   provider.Format
	Strategy provider.Strategy
	Keys     []string
}

// Orphans adds cleanup entries for recorded targets the plan no longer
// renders. Fully owned files are deleted; merge files lose their managed
// region and are deleted when nothing else remains. A merge file that no
// longer parses gets a delete entry with Conflict set.
func Orphans(p *plan.Plan, records []Record, ctx Context) error {
	for _, rec := range records {
		if _, planned := p.Get(rec.Path); planned {
			continue
		}
		e := &plan.Entry{
			Path:     rec.Path,
			Provider: rec.Provider,
			Format:   rec.Format,
			Strategy: rec.Strategy,
			Action:   plan.ActionDelete,
			Keys:     rec.Keys,
			Orphan:   true,
		}

		existing, err := ctx.read(rec.Path)
		if err != nil {
			return err
		}
		if existing != nil {
			codec := block.For(rec.Format, rec.Strategy)
			stripped, err := codec.Strip(existing, rec.Keys)
			switch {
			case errors.Is(err, block.ErrInvalidDocument) || errors.Is(err, block.ErrNotObject):
				e.Conflict = fmt.Sprintf("cannot remove managed content: %v", err)
			case err != nil:
				return fmt.Errorf("stripping %s: %w", rec.Path, err)
			case stripped != nil:
				managed, err := codec.Managed(stripped, rec.Keys)
				if err != nil {
					return fmt.Errorf("fingerprinting %s: %w", rec.Path, err)
				}
				e.Action = plan.ActionWrite
				e.Content = stripped
				e.Fingerprint = plan.Fingerprint(stripped)
				e.ManagedFingerprint = plan.Fingerprint(managed)
			}
		}
		if err := p.Add(e); err != nil {
			return err
		}
	}
	return nil
}
