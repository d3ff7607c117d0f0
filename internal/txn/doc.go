// Package txn applies a render plan to the worktree as one stage-then-commit
// transaction.
//
// Every write is first staged to a sibling temp file and every delete is
// verified. Only when all of that succeeded are the temps renamed over their
// targets, in sorted path order. A staging failure leaves the worktree
// exactly as it was; a failure part way through the renames is reported as
// a PartialCommitError naming what landed and what did not.
package txn
