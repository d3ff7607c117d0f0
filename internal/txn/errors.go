package txn

import (
	"fmt"
	"strings"
)

// StageError is returned when a pass aborts before any rename.
type StageError struct {
	Path string
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("staging %s: %v", e.Path, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PartialCommitError is returned when a rename fails after staging
// succeeded. Committed paths hold their new content; Pending paths were not
// attempted and still hold their old content.
type PartialCommitError struct {
	Committed []string
	Failed    string
	Pending   []string
	Err       error
}

func (e *PartialCommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "committing %s: %v", e.Failed, e.Err)
	fmt.Fprintf(&b, " (%d committed, %d pending)", len(e.Committed), len(e.Pending))
	return b.String()
}

func (e *PartialCommitError) Unwrap() error { return e.Err }
