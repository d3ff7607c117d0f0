package model

import "github.com/spf13/afero"

// Kind names a definition directory and its optional "kind" field.
type Kind string

const (
	KindRule     Kind = "rule"
	KindSkill    Kind = "skill"
	KindWorkflow Kind = "workflow"
	KindPreset   Kind = "preset"
)

// Dir returns the store subdirectory holding definitions of this kind.
func (k Kind) Dir() string { return string(k) + "s" }

// Hint restricts which target classes a rule is rendered into.
type Hint string

const (
	HintMarkdownSection Hint = "markdown-section"
	HintMarkdownFile    Hint = "markdown-file"
	HintJSONField       Hint = "json-field"
	HintYAMLField       Hint = "yaml-field"
	HintTOMLField       Hint = "toml-field"
)

// Severity of a rule.
type Severity string

const (
	SeveritySuggestion Severity = "suggestion"
	SeverityMandatory  Severity = "mandatory"
)

// Rule is a single instruction for agents.
type Rule struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Instruction string   `yaml:"instruction" json:"instruction"`
	Hints       []Hint   `yaml:"hints,omitempty" json:"hints,omitempty"`
	Scope       string   `yaml:"scope,omitempty" json:"scope,omitempty"`
	Severity    Severity `yaml:"severity,omitempty" json:"severity,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Revision fingerprints the rule's canonical content.
	Revision string `yaml:"-" json:"revision,omitempty"`
}

// Accepts reports whether the rule may be rendered into a target of hint
// class h. A rule without hints goes everywhere.
func (r Rule) Accepts(h Hint) bool {
	if len(r.Hints) == 0 {
		return true
	}
	for _, hint := range r.Hints {
		if hint == h {
			return true
		}
	}
	return false
}

// Skill is a reusable capability with optional supporting files.
type Skill struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description"`
	Steps       []string `yaml:"steps,omitempty" json:"steps,omitempty"`
	// Assets are store-relative paths.
	Assets   []string `yaml:"assets,omitempty" json:"assets,omitempty"`
	Scope    string   `yaml:"scope,omitempty" json:"scope,omitempty"`
	Tags     []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Revision string   `yaml:"-" json:"revision,omitempty"`
}

// TriggerKind says how a workflow starts.
type TriggerKind string

const (
	TriggerManual TriggerKind = "manual"
	TriggerHook   TriggerKind = "hook"
)

// Trigger starts a workflow.
type Trigger struct {
	Kind TriggerKind `yaml:"kind" json:"kind"`
	Name string      `yaml:"name" json:"name"`
}

// Action is one workflow step. Exactly one field is set.
type Action struct {
	Run    string `yaml:"run,omitempty" json:"run,omitempty"`
	Skill  string `yaml:"skill,omitempty" json:"skill,omitempty"`
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
}

// Workflow is an ordered sequence of actions with triggers.
type Workflow struct {
	ID          string    `yaml:"id" json:"id"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Scope       string    `yaml:"scope,omitempty" json:"scope,omitempty"`
	Tags        []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	Actions     []Action  `yaml:"actions" json:"actions"`
	Revision    string    `yaml:"-" json:"revision,omitempty"`
}

// Settings maps provider id to key to value.
type Settings map[string]map[string]any

// Preset bundles entries and provider settings under one name.
type Preset struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []string `yaml:"rules,omitempty" json:"rules,omitempty"`
	Skills      []string `yaml:"skills,omitempty" json:"skills,omitempty"`
	Workflows   []string `yaml:"workflows,omitempty" json:"workflows,omitempty"`
	Settings    Settings `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// StoreConfig is store.yaml.
type StoreConfig struct {
	Version   int      `yaml:"version" json:"version"`
	Providers []string `yaml:"providers" json:"providers"`
	// Projects are worktree-relative; "" is the worktree root.
	Projects  []string `yaml:"projects,omitempty" json:"projects,omitempty"`
	Presets   []string `yaml:"presets,omitempty" json:"presets,omitempty"`
	Rules     []string `yaml:"rules,omitempty" json:"rules,omitempty"`
	Skills    []string `yaml:"skills,omitempty" json:"skills,omitempty"`
	Workflows []string `yaml:"workflows,omitempty" json:"workflows,omitempty"`
	Settings  Settings `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// ProjectList returns the configured projects, or the worktree root alone.
func (c StoreConfig) ProjectList() []string {
	if len(c.Projects) == 0 {
		return []string{""}
	}
	return c.Projects
}

// Model is everything loaded from one control store. Slices are sorted by id.
type Model struct {
	Root      string
	Store     StoreConfig
	Rules     []Rule
	Skills    []Skill
	Workflows []Workflow
	Presets   []Preset

	fs      afero.Fs
	origins map[string][]string // "kind:id" -> defining files
}
