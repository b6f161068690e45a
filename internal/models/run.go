package models

import (
	"strings"
	"time"

	"github.com/harrison/cukeguard/internal/focus"
)

// RunKind identifies what triggered a cucumber run.
type RunKind string

const (
	// RunAll runs every configured feature set.
	RunAll RunKind = "all"
	// RunModified runs the paths reported by the watcher.
	RunModified RunKind = "modified"
	// RunManual runs paths given on the command line.
	RunManual RunKind = "manual"
)

// Run describes a cucumber invocation before it is dispatched.
type Run struct {
	ID    string   // Unique run identifier (uuid)
	Kind  RunKind  // What triggered the run
	Paths []string // Paths requested, before focusing
}

// RunResult captures the outcome of a dispatched (or skipped) run.
type RunResult struct {
	Run      Run
	Focus    focus.Outcome // Outcome of applying the focus tag
	Paths    []string      // Paths handed to cucumber
	Command  []string      // Full argv, command first
	Passed   bool          // Cucumber exited zero
	Skipped  bool          // Nothing was dispatched
	Reason   string        // Why the run was skipped (optional)
	Duration time.Duration
}

// CommandLine returns the argv joined with spaces.
func (r RunResult) CommandLine() string {
	return strings.Join(r.Command, " ")
}

// Status returns a short label for the result.
func (r RunResult) Status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "passed"
	default:
		return "failed"
	}
}
