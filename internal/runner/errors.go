package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCommand indicates no cucumber command was configured.
var ErrEmptyCommand = errors.New("empty cucumber command")

// RunError reports a cucumber process that could not be run at all, as
// opposed to one that ran and reported failing scenarios.
type RunError struct {
	Command []string // argv that was attempted
	Err     error    // Underlying error
}

// Error implements the error interface for RunError.
func (e *RunError) Error() string {
	return fmt.Sprintf("failed to run %q: %v", strings.Join(e.Command, " "), e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *RunError) Unwrap() error {
	return e.Err
}

// exitCoder is satisfied by *exec.ExitError.
type exitCoder interface {
	ExitCode() int
}

// isTestFailure reports whether err means the process ran and exited
// non-zero.
func isTestFailure(err error) bool {
	var ec exitCoder
	return errors.As(err, &ec) && ec.ExitCode() != 0
}
