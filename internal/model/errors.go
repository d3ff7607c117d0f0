package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the store has no store.yaml.
	ErrNotFound = errors.New("store configuration not found")

	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("invalid model")

	ErrCorrupt           = errors.New("corrupt definition")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrDanglingReference = errors.New("dangling reference")
	ErrDuplicateTrigger  = errors.New("duplicate trigger")
	ErrInvalidAsset      = errors.New("invalid asset")
	ErrInvalidScope      = errors.New("invalid scope")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// Problem is one validation finding.
type Problem struct {
	Err     error  // one of the sentinels above
	Subject string // file or entry the problem is about
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %v: %s", p.Subject, p.Err, p.Message)
}

// ValidationError aggregates every problem found in one load or validation.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return e.Problems[0].String()
	}
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = "  " + p.String()
	}
	return fmt.Sprintf("%d problems:\n%s", len(e.Problems), strings.Join(lines, "\n"))
}

// Is matches ErrValidation and the sentinel of any contained problem.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	for _, p := range e.Problems {
		if p.Err == target {
			return true
		}
	}
	return false
}

type problems []Problem

func (ps *problems) add(err error, subject, format string, args ...any) {
	*ps = append(*ps, Problem{Err: err, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// err returns nil when empty, else a ValidationError with problems sorted
// by subject for stable output.
func (ps problems) err() error {
	if len(ps) == 0 {
		return nil
	}
	sorted := append([]Problem(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Subject < sorted[j].Subject })
	return &ValidationError{Problems: sorted}
}
