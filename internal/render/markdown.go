package render

import (
	"fmt"
	"path"
	"strings"

	"github.com/agentx-labs/agentsync/internal/model"
	"go.yaml.in/yaml/v3"
)

// ruleSection renders a rule as a markdown section at the given heading level.
func ruleSection(r model.Rule, level int) string {
	var b strings.Builder
	heading := r.ID
	if r.Severity == model.SeverityMandatory {
		heading += " (mandatory)"
	}
	fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", level), heading)
	if r.Description != "" {
		fmt.Fprintf(&b, "_%s_\n\n", strings.TrimSpace(r.Description))
	}
	b.WriteString(normalize(r.Instruction))
	return b.String()
}

func skillSection(s model.Skill, assetRoot string, level int) string {
	return fmt.Sprintf("%s Skill: %s\n\n%s", strings.Repeat("#", level), s.ID, skillBody(s, assetRoot))
}

func skillBody(s model.Skill, assetRoot string) string {
	var b strings.Builder
	b.WriteString(normalize(s.Description))
	if len(s.Steps) > 0 {
		b.WriteString("\n")
		for i, step := range s.Steps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, strings.TrimSpace(step))
		}
		b.WriteString("\n")
	}
	if len(s.Assets) > 0 {
		b.WriteString("\nAssets:\n")
		for _, a := range s.Assets {
			fmt.Fprintf(&b, "\n- `%s`", path.Join(assetRoot, a))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func workflowSection(w model.Workflow, skills func(string) (model.Skill, bool), level int) string {
	return fmt.Sprintf("%s Workflow: %s\n\n%s", strings.Repeat("#", level), w.ID, workflowBody(w, skills))
}

func workflowBody(w model.Workflow, skills func(string) (model.Skill, bool)) string {
	var b strings.Builder
	if w.Description != "" {
		b.WriteString(normalize(w.Description))
		b.WriteString("\n")
	}
	if len(w.Triggers) > 0 {
		b.WriteString("Triggers:\n\n")
		for _, t := range w.Triggers {
			fmt.Fprintf(&b, "- %s: `%s`\n", t.Kind, t.Name)
		}
		b.WriteString("\n")
	}
	b.WriteString("Steps:\n\n")
	for i, a := range w.Actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, actionText(a, skills))
	}
	return b.String()
}

func actionText(a model.Action, skills func(string) (model.Skill, bool)) string {
	switch {
	case a.Run != "":
		return fmt.Sprintf("Run `%s`", strings.TrimSpace(a.Run))
	case a.Skill != "":
		if s, ok := skills(a.Skill); ok {
			return fmt.Sprintf("Use the `%s` skill: %s", s.ID, firstLine(s.Description))
		}
		return fmt.Sprintf("Use the `%s` skill", a.Skill)
	default:
		return firstLine(a.Prompt)
	}
}

// frontMatter renders a YAML header followed by body.
func frontMatter(header any, body string) (string, error) {
	data, err := yaml.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	return "---\n" + string(data) + "---\n\n" + body, nil
}

type ruleFront struct {
	Description string `yaml:"description"`
	Globs       string `yaml:"globs,omitempty"`
	AlwaysApply bool   `yaml:"alwaysApply"`
}

type skillFront struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type workflowFront struct {
	Description string `yaml:"description"`
}

func ruleFrontMatter(r model.Rule) ruleFront {
	desc := r.Description
	if desc == "" {
		desc = firstLine(r.Instruction)
	}
	scope := model.NormalizeScope(r.Scope)
	f := ruleFront{Description: desc, AlwaysApply: scope == ""}
	if scope != "" {
		f.Globs = scope + "/**"
	}
	return f
}

// normalize trims surrounding blank lines, converts CRLF, and ends with one
// newline.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Trim(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n") + "\n"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
