package model

import (
	"path"
	"strings"
)

// NormalizeScope maps the global spellings ("", "global", ".", "/") to ""
// and cleans everything else into a slash-separated relative path.
func NormalizeScope(scope string) string {
	s := strings.TrimSpace(strings.ReplaceAll(scope, "\\", "/"))
	switch s {
	case "", "global", ".", "/":
		return ""
	}
	s = path.Clean(s)
	if s == "." {
		return ""
	}
	return strings.TrimSuffix(s, "/")
}

// InScope reports whether an entry with the given scope applies to project.
// Global entries apply everywhere; a scoped entry applies to its own path
// and every project below it.
func InScope(scope, project string) bool {
	s := NormalizeScope(scope)
	if s == "" {
		return true
	}
	p := NormalizeScope(project)
	return p == s || strings.HasPrefix(p, s+"/")
}

func validScope(scope string) bool {
	s := NormalizeScope(scope)
	if s == "" {
		return true
	}
	return !path.IsAbs(s) && s != ".." && !strings.HasPrefix(s, "../")
}
