package provider

import (
	"strings"

	"github.com/agentx-labs/agentsync/internal/model"
)

// Category groups providers for display.
type Category string

const (
	CategoryIDE        Category = "ide"
	CategoryCLIAgent   Category = "cli-agent"
	CategoryAutonomous Category = "autonomous"
	CategoryCopilot    Category = "copilot"
)

// Format is the on-disk syntax of a target file.
type Format string

const (
	FormatMarkdown Format = "markdown"
	// FormatMDC is markdown with a YAML front matter header.
	FormatMDC  Format = "mdc"
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Structured reports whether the format is a key/value document.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML || f == FormatTOML
}

// Strategy says how much of a target file the engine owns.
type Strategy string

const (
	// StrategyOverwrite: the whole file is engine-owned.
	StrategyOverwrite Strategy = "overwrite"
	// StrategyMerge: only delimited blocks or managed keys are engine-owned.
	StrategyMerge Strategy = "merge"
)

// ContentKind is a slice of the model a target receives.
type ContentKind string

const (
	ContentRules     ContentKind = "rules"
	ContentSkills    ContentKind = "skills"
	ContentWorkflows ContentKind = "workflows"
	ContentSettings  ContentKind = "settings"
)

// IDPlaceholder in a target path makes the target per-entry.
const IDPlaceholder = "{id}"

// Target is one file (or one file per entry) a provider reads.
type Target struct {
	Path     string        `yaml:"path" json:"path"`
	Format   Format        `yaml:"format" json:"format"`
	Strategy Strategy      `yaml:"strategy" json:"strategy"`
	Content  []ContentKind `yaml:"content" json:"content"`
	// Key is the managed key holding rendered rules in structured formats.
	Key    string `yaml:"key,omitempty" json:"key,omitempty"`
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
}

// PerEntry reports whether the target expands to one file per entry.
func (t Target) PerEntry() bool { return strings.Contains(t.Path, IDPlaceholder) }

// Expand substitutes an entry id into a per-entry path.
func (t Target) Expand(id string) string { return strings.ReplaceAll(t.Path, IDPlaceholder, id) }

// Accepts reports whether the target receives content of kind k.
func (t Target) Accepts(k ContentKind) bool {
	for _, c := range t.Content {
		if c == k {
			return true
		}
	}
	return false
}

// HintClass maps the target to the rule hint that selects it.
func (t Target) HintClass() model.Hint {
	switch t.Format {
	case FormatJSON:
		return model.HintJSONField
	case FormatYAML:
		return model.HintYAMLField
	case FormatTOML:
		return model.HintTOMLField
	}
	if t.PerEntry() {
		return model.HintMarkdownFile
	}
	return model.HintMarkdownSection
}

// Descriptor is one provider.
type Descriptor struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`
	Targets  []Target `yaml:"targets" json:"targets"`

	// Source is "builtin" or the store file that defined the descriptor.
	Source string `yaml:"-" json:"source"`
}
