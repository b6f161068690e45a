package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// CommandRunner abstracts process execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) error
}

// ExecRunner executes commands directly (no shell), streaming their output.
type ExecRunner struct {
	Dir    string    // Working directory (empty = current dir)
	Stdout io.Writer // nil defaults to os.Stdout
	Stderr io.Writer // nil defaults to os.Stderr
}

// NewExecRunner creates a CommandRunner that executes real processes.
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

// Run starts argv[0] with the remaining arguments and waits for it.
// A non-zero exit is reported as an *exec.ExitError.
func (r *ExecRunner) Run(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}
