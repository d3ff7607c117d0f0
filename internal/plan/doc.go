// Package plan holds the pass-scoped render plan: the mapping from each
// worktree-relative target path to the bytes the engine expects there, plus
// the fingerprints the drift detector and the manifest compare against.
// A plan is built by the renderer, read by the drift detector and the
// transactional writer, and never persisted.
package plan
