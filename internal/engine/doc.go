// Package engine runs one synchronization pass: resolve the store, take its
// lock, load and validate the model, render every selected provider, diff
// the result against the worktree and either report or commit it.
//
// Check and Sync share every step up to the drift report. Sync then hands
// the plan to the transactional writer and records what landed in the
// worktree's manifest. Classify maps any error a pass returns to an exit
// code.
package engine
