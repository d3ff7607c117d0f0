package model

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func loadFixture(t *testing.T) *Model {
	t.Helper()
	m, err := Load(afero.NewOsFs(), filepath.Join("testdata", "basic"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoad_Fixture(t *testing.T) {
	m := loadFixture(t)

	if got := len(m.Rules); got != 3 {
		t.Fatalf("rules = %d, want 3", got)
	}
	// Sorted by id.
	if m.Rules[0].ID != "go-errors" || m.Rules[1].ID != "r1" || m.Rules[2].ID != "unused" {
		t.Errorf("rule order = %s, %s, %s", m.Rules[0].ID, m.Rules[1].ID, m.Rules[2].ID)
	}
	if m.Rules[1].Severity != SeveritySuggestion {
		t.Errorf("default severity = %q, want suggestion", m.Rules[1].Severity)
	}
	if !strings.HasPrefix(m.Rules[0].Revision, "blake3:") {
		t.Errorf("revision = %q, want blake3 fingerprint", m.Rules[0].Revision)
	}
	if len(m.Workflows) != 1 || len(m.Workflows[0].Actions) != 3 {
		t.Fatalf("workflow not decoded: %+v", m.Workflows)
	}
	if m.Workflows[0].Actions[1].Skill != "review" {
		t.Errorf("action skill = %q, want review", m.Workflows[0].Actions[1].Skill)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_RevisionIsStable(t *testing.T) {
	a := loadFixture(t)
	b := loadFixture(t)
	for i := range a.Rules {
		if a.Rules[i].Revision != b.Rules[i].Revision {
			t.Errorf("rule %s revision changed between loads", a.Rules[i].ID)
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/store")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoad_CorruptFilesAreAggregated(t *testing.T) {
	fsys := memStore(t, map[string]string{
		"store.yaml":        "version: 1\nproviders: [claude]\n",
		"rules/bad.yaml":    "id: bad\n",
		"rules/broken.yaml": "id: [oops\n",
		"skills/s.yaml":     "kind: rule\nid: s\ndescription: wrong kind\n",
	})

	_, err := Load(fsys, "/store")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err is %T, want *ValidationError", err)
	}
	if len(ve.Problems) != 3 {
		t.Fatalf("problems = %d, want 3:\n%v", len(ve.Problems), err)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{
			name: "duplicate id across kinds",
			files: map[string]string{
				"rules/a.yaml":  "id: x\ninstruction: one\n",
				"skills/b.yaml": "id: x\ndescription: two\n",
			},
			want: ErrDuplicateID,
		},
		{
			name: "duplicate rule id in two files",
			files: map[string]string{
				"rules/a.yaml": "id: x\ninstruction: one\n",
				"rules/b.yaml": "id: x\ninstruction: two\n",
			},
			want: ErrDuplicateID,
		},
		{
			name: "preset references unknown rule",
			files: map[string]string{
				"presets/p.yaml": "id: p\nrules: [ghost]\n",
			},
			want: ErrDanglingReference,
		},
		{
			name: "workflow references unknown skill",
			files: map[string]string{
				"workflows/w.yaml": "id: w\nactions: [{skill: ghost}]\n",
			},
			want: ErrDanglingReference,
		},
		{
			name: "duplicate trigger",
			files: map[string]string{
				"workflows/w.yaml": "id: w\ntriggers: [{kind: hook, name: pre-commit}, {kind: hook, name: pre-commit}]\nactions: [{run: x}]\n",
			},
			want: ErrDuplicateTrigger,
		},
		{
			name: "asset escapes store",
			files: map[string]string{
				"skills/s.yaml": "id: s\ndescription: d\nassets: [../secret]\n",
			},
			want: ErrInvalidAsset,
		},
		{
			name: "asset missing",
			files: map[string]string{
				"skills/s.yaml": "id: s\ndescription: d\nassets: [assets/none.md]\n",
			},
			want: ErrInvalidAsset,
		},
		{
			name: "scope escapes worktree",
			files: map[string]string{
				"rules/r.yaml": "id: r\ninstruction: x\nscope: ../other\n",
			},
			want: ErrInvalidScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string]string{"store.yaml": "version: 1\nproviders: [claude]\n"}
			for k, v := range tt.files {
				files[k] = v
			}
			m, err := Load(memStore(t, files), "/store")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			err = m.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err does not match ErrValidation")
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	m, err := Load(memStore(t, map[string]string{
		"store.yaml":       "version: 1\nproviders: [claude]\npresets: [missing]\n",
		"rules/a.yaml":     "id: x\ninstruction: one\n",
		"skills/b.yaml":    "id: x\ndescription: two\n",
		"workflows/w.yaml": "id: w\nactions: [{skill: ghost}]\n",
	}), "/store")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var ve *ValidationError
	if !errors.As(m.Validate(), &ve) {
		t.Fatal("expected ValidationError")
	}
	if len(ve.Problems) != 3 {
		t.Errorf("problems = %d, want 3: %v", len(ve.Problems), ve)
	}
}

func TestCheckProviders(t *testing.T) {
	m := loadFixture(t)
	known := map[string]bool{"claude": true, "cursor": true}
	err := m.CheckProviders(func(id string) bool { return known[id] })
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
	if !strings.Contains(err.Error(), "vscode") {
		t.Errorf("error should name vscode: %v", err)
	}
}

func memStore(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fsys, filepath.Join("/store", name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return fsys
}
