package render

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/agentx-labs/agentsync/internal/block"
	"github.com/agentx-labs/agentsync/internal/model"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/provider"
)

// Reader returns the current bytes of a worktree-relative path, or an error
// matching fs.ErrNotExist.
type Reader func(rel string) ([]byte, error)

// Context is everything besides the model and descriptor that rendering
// depends on.
type Context struct {
	// Projects are worktree-relative directories; "" is the worktree root.
	Projects []string
	// AssetRoot is the store directory relative to the worktree root, used
	// when pointing at skill assets.
	AssetRoot string
	Read      Reader
	// ManagedKeys returns the keys an earlier pass owned in a structured
	// target, so keys that are no longer rendered get removed.
	ManagedKeys func(rel string) []string
}

func (c Context) read(rel string) ([]byte, error) {
	if c.Read == nil {
		return nil, nil
	}
	data, err := c.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

func (c Context) priorKeys(rel string) []string {
	if c.ManagedKeys == nil {
		return nil
	}
	return c.ManagedKeys(rel)
}

// Render builds the plan entries for one provider across all projects.
func Render(a *model.Active, d provider.Descriptor, ctx Context) (*plan.Plan, error) {
	projects := ctx.Projects
	if len(projects) == 0 {
		projects = []string{""}
	}

	p := plan.New()
	for _, project := range projects {
		scoped := a.ForProject(project)
		for _, t := range d.Targets {
			var entries []*plan.Entry
			var err error
			if t.PerEntry() {
				entries, err = perEntry(scoped, d, t, project, ctx)
			} else {
				entries, err = aggregate(scoped, d, t, project, ctx)
			}
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if err := p.Add(e); err != nil {
					return nil, err
				}
			}
		}
	}
	return p, nil
}

// perEntry renders one fully owned file per selected entry.
func perEntry(a *model.Active, d provider.Descriptor, t provider.Target, project string, ctx Context) ([]*plan.Entry, error) {
	type file struct {
		id, source, body string
	}
	var files []file

	switch t.Content[0] {
	case provider.ContentRules:
		for _, r := range a.Rules {
			if !r.Accepts(t.HintClass()) {
				continue
			}
			body := ruleSection(r, 1)
			if t.Format == provider.FormatMDC {
				var err error
				if body, err = frontMatter(ruleFrontMatter(r), normalize(r.Instruction)); err != nil {
					return nil, err
				}
			}
			files = append(files, file{r.ID, "rule." + r.ID, body})
		}
	case provider.ContentSkills:
		for _, s := range a.Skills {
			body := skillSection(s, ctx.AssetRoot, 1)
			if t.Format == provider.FormatMDC {
				var err error
				front := skillFront{Name: s.ID, Description: firstLine(s.Description)}
				if body, err = frontMatter(front, skillBody(s, ctx.AssetRoot)); err != nil {
					return nil, err
				}
			}
			files = append(files, file{s.ID, "skill." + s.ID, body})
		}
	case provider.ContentWorkflows:
		for _, w := range a.Workflows {
			body := workflowSection(w, a.Skill, 1)
			if t.Format == provider.FormatMDC {
				var err error
				desc := firstLine(w.Description)
				if desc == "" {
					desc = w.ID
				}
				if body, err = frontMatter(workflowFront{Description: desc}, workflowBody(w, a.Skill)); err != nil {
					return nil, err
				}
			}
			files = append(files, file{w.ID, "workflow." + w.ID, body})
		}
	}

	entries := make([]*plan.Entry, 0, len(files))
	for _, f := range files {
		rel := path.Join(project, t.Expand(f.id))
		e, err := newEntry(d, t, rel, block.Payload{Body: []byte(f.body)}, nil, nil)
		if err != nil {
			return nil, err
		}
		e.Sources = []string{f.source}
		entries = append(entries, e)
	}
	return entries, nil
}

// aggregate renders one file holding every selected entry.
func aggregate(a *model.Active, d provider.Descriptor, t provider.Target, project string, ctx Context) ([]*plan.Entry, error) {
	rel := path.Join(project, t.Path)
	var sections []block.Block

	if t.Accepts(provider.ContentRules) {
		for _, r := range a.Rules {
			if r.Accepts(t.HintClass()) {
				sections = append(sections, block.Block{ID: "rule." + r.ID, Content: ruleSection(r, 2)})
			}
		}
	}
	if t.Accepts(provider.ContentSkills) {
		for _, s := range a.Skills {
			sections = append(sections, block.Block{ID: "skill." + s.ID, Content: skillSection(s, ctx.AssetRoot, 2)})
		}
	}
	if t.Accepts(provider.ContentWorkflows) {
		for _, w := range a.Workflows {
			sections = append(sections, block.Block{ID: "workflow." + w.ID, Content: workflowSection(w, a.Skill, 2)})
		}
	}

	var payload block.Payload
	sources := make([]string, 0, len(sections))
	for _, s := range sections {
		sources = append(sources, s.ID)
	}

	switch {
	case t.Format.Structured():
		values := make(map[string]any)
		if t.Accepts(provider.ContentSettings) {
			for k, v := range a.SettingsFor(d.ID) {
				values[k] = v
			}
			if len(values) > 0 {
				sources = append(sources, "settings."+d.ID)
			}
		}
		if t.Key != "" && len(sections) > 0 {
			values[t.Key] = joinSections(sections)
		}
		payload.Values = values
	case t.Strategy == provider.StrategyOverwrite:
		if len(sections) > 0 {
			payload.Body = []byte(overwriteBody(t.Header, sections))
		}
	default:
		payload.Blocks = sections
	}

	if payload.Empty() {
		return nil, nil
	}
	existing, err := ctx.read(rel)
	if err != nil {
		return nil, err
	}
	e, err := newEntry(d, t, rel, payload, existing, ctx.priorKeys(rel))
	if err != nil {
		return nil, err
	}
	e.Sources = sources
	return []*plan.Entry{e}, nil
}

// newEntry composes the expected file and fingerprints it.
func newEntry(d provider.Descriptor, t provider.Target, rel string, payload block.Payload, existing []byte, prior []string) (*plan.Entry, error) {
	codec := block.For(t.Format, t.Strategy)
	payload.Remove = prior

	var conflict string
	content, err := codec.Compose(existing, payload)
	if existing != nil && (errors.Is(err, block.ErrInvalidDocument) || errors.Is(err, block.ErrNotObject)) {
		conflict = fmt.Sprintf("cannot merge into existing file: %v", err)
		content, err = codec.Compose(nil, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s for %s: %w", rel, d.ID, err)
	}
	keys := sortedKeys(payload.Values)
	managed, err := codec.Managed(content, keys)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %s for %s: %w", rel, d.ID, err)
	}
	return &plan.Entry{
		Path:               rel,
		Provider:           d.ID,
		Format:             t.Format,
		Strategy:           t.Strategy,
		Action:             plan.ActionWrite,
		Content:            content,
		Fingerprint:        plan.Fingerprint(content),
		ManagedFingerprint: plan.Fingerprint(managed),
		Keys:               keys,
		Conflict:           conflict,
	}, nil
}

func overwriteBody(header string, sections []block.Block) string {
	parts := make([]string, 0, len(sections)+1)
	if h := strings.TrimSpace(header); h != "" {
		parts = append(parts, h+"\n")
	}
	for _, s := range sections {
		parts = append(parts, s.Content)
	}
	return strings.Join(parts, "\n")
}

func joinSections(sections []block.Block) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.Content
	}
	return strings.Join(parts, "\n")
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
