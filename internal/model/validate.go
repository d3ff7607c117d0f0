package model

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/agentx-labs/agentsync/internal/platform"
	"github.com/spf13/afero"
)

// Validate checks the invariants that span definitions: unique ids,
// resolvable references, unique workflow triggers, asset paths inside the
// store, and well-formed scopes. Every problem is reported in one
// ValidationError.
func (m *Model) Validate() error {
	var ps problems

	m.checkDuplicates(&ps)

	rules, skills, workflows := m.index()

	for _, r := range m.Rules {
		if !validScope(r.Scope) {
			ps.add(ErrInvalidScope, "rule "+r.ID, "scope %q leaves the worktree", r.Scope)
		}
	}
	for _, s := range m.Skills {
		if !validScope(s.Scope) {
			ps.add(ErrInvalidScope, "skill "+s.ID, "scope %q leaves the worktree", s.Scope)
		}
		for _, asset := range s.Assets {
			if msg := m.checkAsset(asset); msg != "" {
				ps.add(ErrInvalidAsset, "skill "+s.ID, "asset %q %s", asset, msg)
			}
		}
	}
	for _, w := range m.Workflows {
		subject := "workflow " + w.ID
		if !validScope(w.Scope) {
			ps.add(ErrInvalidScope, subject, "scope %q leaves the worktree", w.Scope)
		}
		seen := make(map[Trigger]bool)
		for _, t := range w.Triggers {
			if seen[t] {
				ps.add(ErrDuplicateTrigger, subject, "%s trigger %q declared twice", t.Kind, t.Name)
			}
			seen[t] = true
		}
		for i, a := range w.Actions {
			if a.Skill != "" && !skills[a.Skill] {
				ps.add(ErrDanglingReference, subject, "action %d uses unknown skill %q", i+1, a.Skill)
			}
		}
	}

	presets := make(map[string]bool, len(m.Presets))
	for _, p := range m.Presets {
		presets[p.ID] = true
		checkRefs(&ps, "preset "+p.ID, p.Rules, p.Skills, p.Workflows, rules, skills, workflows)
	}

	checkRefs(&ps, StoreFile, m.Store.Rules, m.Store.Skills, m.Store.Workflows, rules, skills, workflows)
	for _, id := range m.Store.Presets {
		if !presets[id] {
			ps.add(ErrDanglingReference, StoreFile, "unknown preset %q", id)
		}
	}
	for _, p := range m.Store.Projects {
		if !validScope(p) {
			ps.add(ErrInvalidScope, StoreFile, "project %q leaves the worktree", p)
		}
	}

	return ps.err()
}

// CheckProviders reports store.yaml providers and settings keys that the
// catalog does not know.
func (m *Model) CheckProviders(known func(id string) bool) error {
	var ps problems
	for _, id := range m.Store.Providers {
		if !known(id) {
			ps.add(ErrUnknownProvider, StoreFile, "provider %q is not in the catalog", id)
		}
	}
	for id := range m.Store.Settings {
		if !known(id) {
			ps.add(ErrUnknownProvider, StoreFile, "settings for unknown provider %q", id)
		}
	}
	for _, p := range m.Presets {
		for id := range p.Settings {
			if !known(id) {
				ps.add(ErrUnknownProvider, "preset "+p.ID, "settings for unknown provider %q", id)
			}
		}
	}
	return ps.err()
}

func (m *Model) index() (rules, skills, workflows map[string]bool) {
	rules = make(map[string]bool, len(m.Rules))
	for _, r := range m.Rules {
		rules[r.ID] = true
	}
	skills = make(map[string]bool, len(m.Skills))
	for _, s := range m.Skills {
		skills[s.ID] = true
	}
	workflows = make(map[string]bool, len(m.Workflows))
	for _, w := range m.Workflows {
		workflows[w.ID] = true
	}
	return rules, skills, workflows
}

// checkDuplicates enforces one namespace for rules, skills and workflows,
// and a separate one for presets.
func (m *Model) checkDuplicates(ps *problems) {
	owner := make(map[string]Kind)
	note := func(kind Kind, id string) {
		if prev, ok := owner[id]; ok {
			ps.add(ErrDuplicateID, fmt.Sprintf("%s %s", kind, id), "id already used by a %s%s", prev, m.originHint(prev, id))
			return
		}
		owner[id] = kind
	}
	for _, r := range m.Rules {
		note(KindRule, r.ID)
	}
	for _, s := range m.Skills {
		note(KindSkill, s.ID)
	}
	for _, w := range m.Workflows {
		note(KindWorkflow, w.ID)
	}

	seen := make(map[string]bool)
	for _, p := range m.Presets {
		if seen[p.ID] {
			ps.add(ErrDuplicateID, "preset "+p.ID, "id already used by a preset%s", m.originHint(KindPreset, p.ID))
		}
		seen[p.ID] = true
	}
}

func (m *Model) originHint(kind Kind, id string) string {
	files := m.origins[string(kind)+":"+id]
	if len(files) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", files[0])
}

// checkAsset returns a problem description, or "" when the asset is fine.
func (m *Model) checkAsset(asset string) string {
	full, err := platform.Within(m.Root, asset)
	if err != nil {
		return "is outside the store"
	}
	if m.fs == nil {
		return ""
	}
	rel, _ := filepath.Rel(m.Root, full)
	if err := platform.CheckNoSymlink(m.fs, m.Root, rel); err != nil {
		if errors.Is(err, platform.ErrSymlinkPath) {
			return "goes through a symlink"
		}
		return err.Error()
	}
	if _, err := m.fs.Stat(full); errors.Is(err, fs.ErrNotExist) {
		return "does not exist"
	} else if err != nil {
		return err.Error()
	}
	return ""
}

func checkRefs(ps *problems, subject string, ruleIDs, skillIDs, workflowIDs []string, rules, skills, workflows map[string]bool) {
	for _, id := range ruleIDs {
		if !rules[id] {
			ps.add(ErrDanglingReference, subject, "unknown rule %q", id)
		}
	}
	for _, id := range skillIDs {
		if !skills[id] {
			ps.add(ErrDanglingReference, subject, "unknown skill %q", id)
		}
	}
	for _, id := range workflowIDs {
		if !workflows[id] {
			ps.add(ErrDanglingReference, subject, "unknown workflow %q", id)
		}
	}
}

// Fs returns the filesystem the model was loaded from.
func (m *Model) Fs() afero.Fs { return m.fs }
