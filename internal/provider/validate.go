package provider

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidDescriptor is returned for descriptors that are well-formed
// but cannot be rendered.
var ErrInvalidDescriptor = errors.New("invalid provider descriptor")

// Check verifies the rules schema validation cannot express. All problems
// are joined into one error.
func (d Descriptor) Check() error {
	var errs []error
	fail := func(i int, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s target %d: %s", ErrInvalidDescriptor, d.ID, i, fmt.Sprintf(format, args...)))
	}

	seen := make(map[string]bool)
	for i, t := range d.Targets {
		clean := path.Clean(t.Path)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			fail(i, "path %q leaves the project", t.Path)
		}
		if seen[clean] {
			fail(i, "path %q listed twice", t.Path)
		}
		seen[clean] = true

		if t.PerEntry() {
			if len(t.Content) != 1 || t.Accepts(ContentSettings) {
				fail(i, "per-entry target must take exactly one of rules, skills, workflows")
			}
			if t.Format.Structured() {
				fail(i, "per-entry target cannot be %s", t.Format)
			}
			if t.Strategy != StrategyOverwrite {
				fail(i, "per-entry target must use overwrite")
			}
			continue
		}

		switch t.Format {
		case FormatMDC:
			fail(i, "mdc targets must be per-entry")
		case FormatMarkdown, FormatText:
			if t.Accepts(ContentSettings) {
				fail(i, "%s target cannot take settings", t.Format)
			}
		case FormatJSON, FormatYAML, FormatTOML:
			if t.Accepts(ContentSkills) || t.Accepts(ContentWorkflows) {
				fail(i, "%s target can only take rules and settings", t.Format)
			}
			if t.Accepts(ContentRules) && t.Key == "" {
				fail(i, "%s target taking rules needs a key", t.Format)
			}
		}
		if t.Header != "" && t.Strategy != StrategyOverwrite {
			fail(i, "header is only allowed with overwrite")
		}
	}
	return errors.Join(errs...)
}
