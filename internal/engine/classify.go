package engine

import (
	"errors"
	"io/fs"

	"github.com/agentx-labs/agentsync/internal/block"
	"github.com/agentx-labs/agentsync/internal/model"
	"github.com/agentx-labs/agentsync/internal/plan"
	"github.com/agentx-labs/agentsync/internal/platform"
	"github.com/agentx-labs/agentsync/internal/provider"
	"github.com/agentx-labs/agentsync/internal/store"
	"github.com/agentx-labs/agentsync/internal/txn"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitConflicts  = 3
	ExitNotFound   = 4
	ExitLock       = 5
	ExitPartial    = 6
	ExitStorage    = 7
	ExitDrift      = 8
)

var validationErrors = []error{
	model.ErrValidation,
	provider.ErrInvalidDescriptor,
	provider.ErrUnknownProvider,
	provider.ErrUnsupportedCatalog,
	plan.ErrDuplicateTarget,
	block.ErrInvalidDocument,
	block.ErrNotObject,
	block.ErrMarkerInContent,
	ErrUnknownSelection,
}

// Classify maps an error returned by a pass to an exit code.
func Classify(err error) int {
	if err == nil {
		return ExitOK
	}

	var partial *txn.PartialCommitError
	if errors.As(err, &partial) {
		return ExitPartial
	}
	if errors.Is(err, store.ErrLockTimeout) || errors.Is(err, store.ErrLockUnavailable) {
		return ExitLock
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, model.ErrNotFound) {
		return ExitNotFound
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return ExitValidation
		}
	}

	var stage *txn.StageError
	var pathErr *fs.PathError
	if errors.As(err, &stage) || errors.As(err, &pathErr) || platform.IsTransient(err) ||
		errors.Is(err, platform.ErrSymlinkPath) || errors.Is(err, ErrManifest) {
		return ExitStorage
	}
	return ExitFailure
}
