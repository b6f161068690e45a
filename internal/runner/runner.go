// Package runner builds and dispatches cucumber commands.
//
// Every run passes through the focus scanner first: when any requested path
// contains the focus tag, cucumber only receives the annotated paths.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/cukeguard/internal/focus"
	"github.com/harrison/cukeguard/internal/models"
)

// Options controls how the cucumber command line is built.
type Options struct {
	Cmd            string // Cucumber command, e.g. "bundle exec cucumber"
	AdditionalArgs string // Extra arguments appended after Cmd
	FocusOn        string // Focus tag; empty disables focusing
	KeepFailed     bool   // Record failures with the rerun formatter
	RerunFile      string // Rerun formatter output path
	DryRun         bool   // Build the command but do not dispatch it
}

// Runner dispatches cucumber runs through a CommandRunner.
type Runner struct {
	cmd   CommandRunner
	newID func() string
}

// New creates a Runner dispatching through cmd.
func New(cmd CommandRunner) *Runner {
	return &Runner{cmd: cmd, newID: uuid.NewString}
}

// BuildCommand returns the argv for running paths with opts.
func BuildCommand(paths []string, opts Options) []string {
	argv := strings.Fields(opts.Cmd)
	extra := strings.Fields(opts.AdditionalArgs)
	argv = append(argv, extra...)

	if opts.KeepFailed && opts.RerunFile != "" {
		// A rerun formatter replaces the default one, so keep console
		// output unless the user picked a format already.
		if !slices.Contains(extra, "--format") && !slices.Contains(extra, "-f") {
			argv = append(argv, "--format", "pretty")
		}
		argv = append(argv, "--format", "rerun", "--out", opts.RerunFile)
	}

	return append(argv, paths...)
}

// Run focuses run.Paths, then dispatches cucumber unless there is nothing to
// run. A failing suite is reported through RunResult.Passed; the error is
// reserved for runs that could not be attempted.
func (r *Runner) Run(ctx context.Context, run models.Run, opts Options) (models.RunResult, error) {
	if run.ID == "" {
		run.ID = r.newID()
	}
	result := models.RunResult{Run: run}

	if len(strings.Fields(opts.Cmd)) == 0 {
		return result, ErrEmptyCommand
	}

	paths := run.Paths
	if opts.FocusOn != "" {
		focused, err := focus.Focus(paths, opts.FocusOn)
		if err != nil {
			return result, fmt.Errorf("failed to focus run %s: %w", run.ID, err)
		}
		result.Focus = focused.Outcome
		paths = focused.Paths
	} else if len(paths) > 0 {
		result.Focus = focus.Unfocused
	}

	if len(paths) == 0 {
		result.Skipped = true
		result.Reason = "no paths to run"
		return result, nil
	}

	result.Paths = paths
	result.Command = BuildCommand(paths, opts)

	if opts.DryRun {
		result.Skipped = true
		result.Reason = "dry run"
		return result, nil
	}

	start := time.Now()
	err := r.cmd.Run(ctx, result.Command)
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Passed = true
	case ctx.Err() != nil:
		return result, ctx.Err()
	case isTestFailure(err):
		result.Passed = false
	default:
		return result, &RunError{Command: result.Command, Err: err}
	}
	return result, nil
}

// ReadFailedPaths returns the feature locations cucumber's rerun formatter
// wrote to path and removes the file. A missing file means nothing failed.
func ReadFailedPaths(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rerun file: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove rerun file: %w", err)
	}
	return strings.Fields(string(data)), nil
}
