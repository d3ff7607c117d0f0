// Package store finds the control store for a worktree, serializes passes
// over it with an advisory lock, and keeps the per-worktree manifest of
// managed writes.
//
// Every git worktree of a repository resolves to the same store: a linked
// worktree follows its .git file to the common git directory and looks for
// the store next to it.
package store
