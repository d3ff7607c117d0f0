// Package render turns the active canonical model into a provider's native
// files. Render is a pure function of its inputs: the active entries, one
// provider descriptor, the project list, and the current bytes of merge
// targets (supplied through Context.Read). The same inputs always produce
// byte-identical plans: entries sorted by id, "\n" line endings, sorted
// keys, and exactly one trailing newline.
package render
