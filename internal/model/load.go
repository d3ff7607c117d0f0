package model

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentx-labs/agentsync/internal/schema"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"go.yaml.in/yaml/v3"
)

// StoreFile is the store configuration file name.
const StoreFile = "store.yaml"

// Load reads store.yaml and every definition under root. Schema violations
// in any file are collected and returned together as a ValidationError
// matching ErrCorrupt. Cross-references are not checked; call Validate.
func Load(fsys afero.Fs, root string) (*Model, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(root, StoreFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Join(root, StoreFile), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", StoreFile, err)
	}

	var ps problems
	m := &Model{Root: root, fs: fsys, origins: make(map[string][]string)}
	if err := decodeDefinition(schema.Store, StoreFile, data, &m.Store, &ps); err != nil {
		return nil, err
	}

	if m.Rules, err = loadKind[Rule](m, KindRule, &ps, func(r Rule) string { return r.ID }); err != nil {
		return nil, err
	}
	if m.Skills, err = loadKind[Skill](m, KindSkill, &ps, func(s Skill) string { return s.ID }); err != nil {
		return nil, err
	}
	if m.Workflows, err = loadKind[Workflow](m, KindWorkflow, &ps, func(w Workflow) string { return w.ID }); err != nil {
		return nil, err
	}
	if m.Presets, err = loadKind[Preset](m, KindPreset, &ps, func(p Preset) string { return p.ID }); err != nil {
		return nil, err
	}
	if err := ps.err(); err != nil {
		return nil, err
	}

	for i := range m.Rules {
		if m.Rules[i].Severity == "" {
			m.Rules[i].Severity = SeveritySuggestion
		}
		m.Rules[i].Revision = revision(m.Rules[i])
	}
	for i := range m.Skills {
		m.Skills[i].Revision = revision(m.Skills[i])
	}
	for i := range m.Workflows {
		m.Workflows[i].Revision = revision(m.Workflows[i])
	}
	return m, nil
}

// loadKind reads every *.yaml / *.yml file in the kind's directory. A
// missing directory yields no entries. The result is sorted by id.
func loadKind[T any](m *Model, kind Kind, ps *problems, id func(T) string) ([]T, error) {
	dir := filepath.Join(m.Root, kind.Dir())
	infos, err := afero.ReadDir(m.fs, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind.Dir(), err)
	}

	var out []T
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		rel := kind.Dir() + "/" + name
		data, err := afero.ReadFile(m.fs, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}

		var v T
		before := len(*ps)
		if err := decodeDefinition(string(kind), rel, data, &v, ps); err != nil {
			return nil, err
		}
		if len(*ps) > before {
			continue
		}
		key := string(kind) + ":" + id(v)
		m.origins[key] = append(m.origins[key], rel)
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out, nil
}

// decodeDefinition schema-checks data and decodes it into v. Syntax and
// schema problems are recorded as ErrCorrupt; only schema compilation
// failures are returned.
func decodeDefinition(schemaName, rel string, data []byte, v any, ps *problems) error {
	res, err := schema.Validate(schemaName, data)
	if err != nil {
		if errors.Is(err, schema.ErrSyntax) {
			ps.add(ErrCorrupt, rel, "%v", err)
			return nil
		}
		return fmt.Errorf("validating %s: %w", rel, err)
	}
	if !res.Valid {
		ps.add(ErrCorrupt, rel, "%s", res.Summary())
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		ps.add(ErrCorrupt, rel, "decoding: %v", err)
	}
	return nil
}

// revision fingerprints an entry's canonical JSON form.
func revision(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(sum[:])
}
