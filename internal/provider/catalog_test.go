package provider

import (
	"errors"
	"testing"

	"github.com/agentx-labs/agentsync/internal/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	want := []string{
		"aider", "amazonq", "antigravity", "claude", "cline", "codex", "copilot",
		"cursor", "gemini", "jetbrains", "roo", "vscode", "windsurf", "zed",
	}
	assert.Equal(t, want, c.IDs())

	categories := make(map[Category]int)
	for _, d := range c.All() {
		categories[d.Category]++
		assert.Equal(t, "builtin", d.Source)
		assert.NoError(t, d.Check(), d.ID)
	}
	assert.Len(t, categories, 4, "every category is represented")
}

func TestBuiltinTargetsAreUnique(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	owner := make(map[string]string)
	for _, d := range c.All() {
		for _, tgt := range d.Targets {
			if prev, ok := owner[tgt.Path]; ok {
				t.Errorf("target %s claimed by %s and %s", tgt.Path, prev, d.ID)
			}
			owner[tgt.Path] = d.ID
		}
	}
}

func TestBuiltinReturnsIndependentCopies(t *testing.T) {
	a, err := Builtin()
	require.NoError(t, err)
	a.providers["x"] = Descriptor{ID: "x"}

	b, err := Builtin()
	require.NoError(t, err)
	assert.False(t, b.Has("x"))
}

func TestLoadStoreOverrides(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/store/providers/acme.yaml", []byte(`id: acme
name: Acme Agent
category: autonomous
targets:
  - path: .acme/rules.md
    format: markdown
    strategy: merge
    content: [rules]
`), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/store/providers/cursor.yaml", []byte(`id: cursor
name: Cursor (legacy)
category: ide
targets:
  - path: .cursorrules
    format: markdown
    strategy: overwrite
    content: [rules]
`), 0644))

	c, err := Load(fsys, "/store")
	require.NoError(t, err)

	acme, ok := c.Get("acme")
	require.True(t, ok)
	assert.Equal(t, "providers/acme.yaml", acme.Source)

	cursor, _ := c.Get("cursor")
	assert.Equal(t, ".cursorrules", cursor.Targets[0].Path)
}

func TestLoadRejectsInvalidStoreDescriptor(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/store/providers/bad.yaml", []byte(`id: bad
name: Bad
category: ide
targets:
  - path: "{id}.json"
    format: json
    strategy: overwrite
    content: [rules]
`), 0644))

	_, err := Load(fsys, "/store")
	assert.True(t, errors.Is(err, ErrInvalidDescriptor), "err = %v", err)
}

func TestSelect(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	ds, err := c.Select([]string{"cursor", "claude"})
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "claude", ds[0].ID)

	_, err = c.Select([]string{"claude", "nope", "nada"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "nada, nope")
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, checkVersion("1.0.0"))
	assert.NoError(t, checkVersion("v1.4.2"))
	assert.ErrorIs(t, checkVersion("2.0.0"), ErrUnsupportedCatalog)
	assert.ErrorIs(t, checkVersion("banana"), ErrUnsupportedCatalog)
}

func TestDescriptorCheck(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		ok     bool
	}{
		{"merge markdown", Target{Path: "A.md", Format: FormatMarkdown, Strategy: StrategyMerge, Content: []ContentKind{ContentRules}}, true},
		{"per-entry mdc", Target{Path: "r/{id}.mdc", Format: FormatMDC, Strategy: StrategyOverwrite, Content: []ContentKind{ContentRules}}, true},
		{"mdc aggregate", Target{Path: "r.mdc", Format: FormatMDC, Strategy: StrategyOverwrite, Content: []ContentKind{ContentRules}}, false},
		{"per-entry merge", Target{Path: "r/{id}.md", Format: FormatMarkdown, Strategy: StrategyMerge, Content: []ContentKind{ContentRules}}, false},
		{"json rules without key", Target{Path: "s.json", Format: FormatJSON, Strategy: StrategyMerge, Content: []ContentKind{ContentRules}}, false},
		{"json rules with key", Target{Path: "s.json", Format: FormatJSON, Strategy: StrategyMerge, Content: []ContentKind{ContentRules, ContentSettings}, Key: "instructions"}, true},
		{"markdown settings", Target{Path: "A.md", Format: FormatMarkdown, Strategy: StrategyMerge, Content: []ContentKind{ContentSettings}}, false},
		{"escaping path", Target{Path: "../A.md", Format: FormatMarkdown, Strategy: StrategyMerge, Content: []ContentKind{ContentRules}}, false},
		{"header on merge", Target{Path: "A.md", Format: FormatMarkdown, Strategy: StrategyMerge, Content: []ContentKind{ContentRules}, Header: "# x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Descriptor{ID: "t", Targets: []Target{tt.target}}
			err := d.Check()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDescriptor)
			}
		})
	}
}

func TestHintClass(t *testing.T) {
	assert.Equal(t, model.HintMarkdownFile, Target{Path: "r/{id}.md", Format: FormatMarkdown}.HintClass())
	assert.Equal(t, model.HintMarkdownSection, Target{Path: "CLAUDE.md", Format: FormatMarkdown}.HintClass())
	assert.Equal(t, model.HintJSONField, Target{Path: "s.json", Format: FormatJSON}.HintClass())
	assert.Equal(t, model.HintTOMLField, Target{Path: "c.toml", Format: FormatTOML}.HintClass())
}
