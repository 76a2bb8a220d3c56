package pipeline

import (
	"errors"
	"fmt"

	"github.com/jitolabs/cbuild/internal/runtime"
)

var (
	ErrFileSystemOperation = errors.New("file system operation failed")
	ErrCopy                = errors.New("copy failed")
)

// Exit status used when a failure carries no command exit status.
const DefaultExitCode = 1

// A pipeline step that failed.
type StepError struct {
	Step     string // Name of the failing step.
	ExitCode int    // Exit status of the failing command, or [DefaultExitCode].
	Err      error
}

func newStepError(step string, err error) *StepError {
	return &StepError{Step: step, ExitCode: exitCode(err), Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Returns the process exit status to report for err.
//
// Zero for nil, the status of the failing external command when one is
// known, and [DefaultExitCode] otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.ExitCode
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var exitErr *runtime.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return DefaultExitCode
}
