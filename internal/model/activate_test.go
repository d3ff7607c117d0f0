package model

import (
	"errors"
	"testing"
)

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestActivate_PresetsAndDirectEntries(t *testing.T) {
	a, err := loadFixture(t).Activate()
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if got := ids(a.Rules, func(r Rule) string { return r.ID }); !equal(got, []string{"go-errors", "r1"}) {
		t.Errorf("rules = %v, want [go-errors r1]", got)
	}
	if got := ids(a.Workflows, func(w Workflow) string { return w.ID }); !equal(got, []string{"ship"}) {
		t.Errorf("workflows = %v, want [ship]", got)
	}
	// Pulled in by the ship workflow.
	if _, ok := a.Skill("review"); !ok {
		t.Error("skill review should be active through workflow ship")
	}

	vs := a.SettingsFor("vscode")
	if vs["editor.tabSize"] != 2 {
		t.Errorf("editor.tabSize = %v, want explicit override 2", vs["editor.tabSize"])
	}
	if vs["go.lintTool"] != "golangci-lint" {
		t.Errorf("go.lintTool = %v, want preset value", vs["go.lintTool"])
	}
}

func TestActivate_EverythingWhenNothingSelected(t *testing.T) {
	m, err := Load(memStore(t, map[string]string{
		"store.yaml":   "version: 1\nproviders: [claude]\n",
		"rules/a.yaml": "id: a\ninstruction: x\n",
		"rules/b.yaml": "id: b\ninstruction: y\n",
	}), "/store")
	if err != nil {
		t.Fatal(err)
	}
	a, err := m.Activate()
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Rules) != 2 {
		t.Errorf("rules = %d, want 2", len(a.Rules))
	}
}

func TestActivate_UnknownDirectEntryFailsClosed(t *testing.T) {
	m, err := Load(memStore(t, map[string]string{
		"store.yaml":   "version: 1\nproviders: [claude]\nrules: [ghost]\n",
		"rules/a.yaml": "id: a\ninstruction: x\n",
	}), "/store")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Activate(); !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("err = %v, want ErrDanglingReference", err)
	}
}

func TestForProject(t *testing.T) {
	a, err := loadFixture(t).Activate()
	if err != nil {
		t.Fatal(err)
	}

	root := a.ForProject("")
	if got := ids(root.Rules, func(r Rule) string { return r.ID }); !equal(got, []string{"r1"}) {
		t.Errorf("root rules = %v, want [r1]", got)
	}
	api := a.ForProject("services/api")
	if got := ids(api.Rules, func(r Rule) string { return r.ID }); !equal(got, []string{"go-errors", "r1"}) {
		t.Errorf("api rules = %v, want [go-errors r1]", got)
	}
}

func TestInScope(t *testing.T) {
	tests := []struct {
		scope, project string
		want           bool
	}{
		{"", "", true},
		{"global", "services/api", true},
		{"services", "services/api", true},
		{"services/api", "services/api", true},
		{"services/api/", "services/api", true},
		{"services/api", "services", false},
		{"services/api", "", false},
		{"serv", "services/api", false},
	}
	for _, tt := range tests {
		if got := InScope(tt.scope, tt.project); got != tt.want {
			t.Errorf("InScope(%q, %q) = %v, want %v", tt.scope, tt.project, got, tt.want)
		}
	}
}
