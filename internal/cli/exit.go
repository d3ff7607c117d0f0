package cli

import (
	"errors"
	"fmt"

	"github.com/agentx-labs/agentsync/internal/engine"
)

// exitError carries an exit code. A nil err means the command already
// reported its outcome and only the code matters.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return engine.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return engine.Classify(err)
}

// codeErr turns a non-zero outcome code into an error for cobra.
func codeErr(code int) error {
	if code == engine.ExitOK {
		return nil
	}
	return &exitError{code: code}
}
