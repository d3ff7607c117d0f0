package model

import "sort"

// Active is the resolved set of entries and settings for one pass.
type Active struct {
	Rules     []Rule
	Skills    []Skill
	Workflows []Workflow
	Settings  Settings
}

// Activate resolves store.yaml against the definitions. With no presets and
// no direct entries, everything defined is active. Otherwise the active set
// is the union of direct entries, activated presets, and skills that active
// workflows use. Settings come from
// presets in listed order, then store.yaml overrides per key.
// Call Validate first; unresolved references fail closed here as well.
func (m *Model) Activate() (*Active, error) {
	cfg := m.Store
	all := len(cfg.Presets) == 0 && len(cfg.Rules) == 0 && len(cfg.Skills) == 0 && len(cfg.Workflows) == 0

	presets := make(map[string]Preset, len(m.Presets))
	for _, p := range m.Presets {
		presets[p.ID] = p
	}

	ruleIDs := toSet(cfg.Rules)
	skillIDs := toSet(cfg.Skills)
	workflowIDs := toSet(cfg.Workflows)
	settings := make(Settings)

	var ps problems
	for _, id := range cfg.Presets {
		p, ok := presets[id]
		if !ok {
			ps.add(ErrDanglingReference, StoreFile, "unknown preset %q", id)
			continue
		}
		addAll(ruleIDs, p.Rules)
		addAll(skillIDs, p.Skills)
		addAll(workflowIDs, p.Workflows)
		mergeSettings(settings, p.Settings)
	}
	mergeSettings(settings, cfg.Settings)

	a := &Active{Settings: settings}
	a.Rules = pick(m.Rules, all, ruleIDs, func(r Rule) string { return r.ID })
	a.Workflows = pick(m.Workflows, all, workflowIDs, func(w Workflow) string { return w.ID })
	// Skills used by active workflows are active too.
	for _, w := range a.Workflows {
		for _, act := range w.Actions {
			if act.Skill != "" {
				skillIDs[act.Skill] = true
			}
		}
	}
	a.Skills = pick(m.Skills, all, skillIDs, func(s Skill) string { return s.ID })

	if !all {
		checkActivated(&ps, KindRule, ruleIDs, a.Rules, func(r Rule) string { return r.ID })
		checkActivated(&ps, KindSkill, skillIDs, a.Skills, func(s Skill) string { return s.ID })
		checkActivated(&ps, KindWorkflow, workflowIDs, a.Workflows, func(w Workflow) string { return w.ID })
	}

	if err := ps.err(); err != nil {
		return nil, err
	}
	return a, nil
}

// ForProject returns the entries in scope for a project path.
func (a *Active) ForProject(project string) *Active {
	out := &Active{Settings: a.Settings}
	for _, r := range a.Rules {
		if InScope(r.Scope, project) {
			out.Rules = append(out.Rules, r)
		}
	}
	for _, s := range a.Skills {
		if InScope(s.Scope, project) {
			out.Skills = append(out.Skills, s)
		}
	}
	for _, w := range a.Workflows {
		if InScope(w.Scope, project) {
			out.Workflows = append(out.Workflows, w)
		}
	}
	return out
}

// SettingsFor returns the merged settings of one provider, or nil.
func (a *Active) SettingsFor(provider string) map[string]any {
	return a.Settings[provider]
}

// Skill returns the active skill with id.
func (a *Active) Skill(id string) (Skill, bool) {
	i := sort.Search(len(a.Skills), func(i int) bool { return a.Skills[i].ID >= id })
	if i < len(a.Skills) && a.Skills[i].ID == id {
		return a.Skills[i], true
	}
	return Skill{}, false
}

func pick[T any](defs []T, all bool, ids map[string]bool, id func(T) string) []T {
	var out []T
	for _, d := range defs {
		if all || ids[id(d)] {
			out = append(out, d)
		}
	}
	return out
}

func checkActivated[T any](ps *problems, kind Kind, ids map[string]bool, got []T, id func(T) string) {
	have := make(map[string]bool, len(got))
	for _, v := range got {
		have[id(v)] = true
	}
	for _, want := range sortedKeys(ids) {
		if !have[want] {
			ps.add(ErrDanglingReference, StoreFile, "activated %s %q is not defined", kind, want)
		}
	}
}

func mergeSettings(dst, src Settings) {
	for provider, kv := range src {
		if dst[provider] == nil {
			dst[provider] = make(map[string]any, len(kv))
		}
		for k, v := range kv {
			dst[provider][k] = v
		}
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	addAll(set, ids)
	return set
}

func addAll(set map[string]bool, ids []string) {
	for _, id := range ids {
		set[id] = true
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
