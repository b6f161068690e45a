package guard

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/cukeguard/internal/config"
	"github.com/harrison/cukeguard/internal/filelock"
	"github.com/harrison/cukeguard/internal/focus"
	"github.com/harrison/cukeguard/internal/logger"
	"github.com/harrison/cukeguard/internal/models"
	"github.com/harrison/cukeguard/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step scripts one dispatcher call.
type step struct {
	passed bool
	failed []string // written to the rerun file
	err    error
}

// fakeDispatcher records runs and replays scripted outcomes.
type fakeDispatcher struct {
	t     *testing.T
	steps []step
	runs  []models.Run
	opts  []runner.Options
}

func (f *fakeDispatcher) Run(ctx context.Context, run models.Run, opts runner.Options) (models.RunResult, error) {
	f.runs = append(f.runs, run)
	f.opts = append(f.opts, opts)

	s := step{passed: true}
	if len(f.steps) > 0 {
		s, f.steps = f.steps[0], f.steps[1:]
	}
	if s.err != nil {
		return models.RunResult{Run: run}, s.err
	}
	if len(s.failed) > 0 {
		data := []byte(s.failed[0])
		for _, p := range s.failed[1:] {
			data = append(data, ' ')
			data = append(data, p...)
		}
		require.NoError(f.t, os.WriteFile(opts.RerunFile, data, 0644))
	}
	return models.RunResult{Run: run, Passed: s.passed, Paths: run.Paths, Focus: focus.Unfocused}, nil
}

// setupProject creates features in a temp dir and makes it the working directory.
func setupProject(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	for _, f := range []string{"features/a.feature", "features/b.feature", "features/c.feature"} {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("Feature: x\n"), 0644))
	}
	t.Chdir(dir)
}

func newGuard(t *testing.T, mutate func(*config.Config), steps ...step) (*Guard, *fakeDispatcher) {
	t.Helper()

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	d := &fakeDispatcher{t: t, steps: steps}
	return New(cfg, d, nil, logger.NewNoOpLogger()), d
}

func TestStart(t *testing.T) {
	setupProject(t)

	t.Run("runs all on start", func(t *testing.T) {
		g, d := newGuard(t, nil)
		require.NoError(t, g.Start(context.Background()))
		require.Len(t, d.runs, 1)
		assert.Equal(t, models.RunAll, d.runs[0].Kind)
		assert.Equal(t, []string{"features"}, d.runs[0].Paths)
	})

	t.Run("all_on_start disabled", func(t *testing.T) {
		g, d := newGuard(t, func(c *config.Config) { c.AllOnStart = false })
		require.NoError(t, g.Start(context.Background()))
		assert.Empty(t, d.runs)
	})
}

func TestRunAll_PassesOptions(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, func(c *config.Config) {
		c.Cmd = "bundle exec cucumber"
		c.CmdAdditionalArgs = "--strict"
		c.FocusOn = "@wip"
	})
	g.SetDryRun(true)

	_, err := g.RunAll(context.Background())
	require.NoError(t, err)

	require.Len(t, d.opts, 1)
	assert.Equal(t, runner.Options{
		Cmd:            "bundle exec cucumber",
		AdditionalArgs: "--strict",
		FocusOn:        "@wip",
		KeepFailed:     true,
		RerunFile:      "rerun.txt",
		DryRun:         true,
	}, d.opts[0])
}

func TestRunOnModifications_CleansPaths(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, nil)

	_, err := g.RunOnModifications(context.Background(), []string{"lib/x.rb", "features/a.feature", "features/a.feature"})
	require.NoError(t, err)

	require.Len(t, d.runs, 1)
	assert.Equal(t, models.RunModified, d.runs[0].Kind)
	assert.Equal(t, []string{"features/a.feature"}, d.runs[0].Paths)
}

func TestRunOnModifications_NothingRunnable(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, nil)

	res, err := g.RunOnModifications(context.Background(), []string{"lib/x.rb", "features/support/env.rb"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, d.runs)
}

func TestKeepFailed(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, nil,
		step{passed: false, failed: []string{"features/b.feature:3"}}, // modification of a fails on b
		step{passed: false, failed: []string{"features/c.feature:2"}}, // next change fails again
		step{passed: true}, // now passes
		step{passed: true}, // all_after_pass
	)
	ctx := context.Background()

	_, err := g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)
	assert.Equal(t, []string{"features/b.feature:3"}, g.FailedPaths())

	_, err = g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)
	assert.Equal(t, []string{"features/a.feature", "features/b.feature:3"}, d.runs[1].Paths)
	assert.Equal(t, []string{"features/b.feature:3", "features/c.feature:2"}, g.FailedPaths())

	res, err := g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)
	assert.Equal(t, []string{"features/a.feature", "features/b.feature:3", "features/c.feature:2"}, d.runs[2].Paths)

	// The pass after failures triggers a full run.
	require.Len(t, d.runs, 4)
	assert.Equal(t, models.RunAll, d.runs[3].Kind)
	assert.Equal(t, models.RunAll, res.Run.Kind)
	assert.Empty(t, g.FailedPaths())

	_, statErr := os.Stat("rerun.txt")
	assert.True(t, os.IsNotExist(statErr), "rerun file should be consumed")
}

func TestKeepFailedDisabled(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, func(c *config.Config) { c.KeepFailed = false },
		step{passed: false, failed: []string{"features/b.feature:3"}},
		step{passed: true},
	)
	ctx := context.Background()

	_, err := g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)
	assert.Empty(t, g.FailedPaths())

	_, err = g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)
	assert.Equal(t, []string{"features/a.feature"}, d.runs[1].Paths)
}

func TestAllAfterPassDisabled(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, func(c *config.Config) { c.AllAfterPass = false },
		step{passed: false},
		step{passed: true},
	)
	ctx := context.Background()

	_, err := g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)
	_, err = g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)

	assert.Len(t, d.runs, 2)
}

func TestRunAll_ReplacesFailedPaths(t *testing.T) {
	setupProject(t)
	g, _ := newGuard(t, nil,
		step{passed: false, failed: []string{"features/a.feature:1"}},
		step{passed: false, failed: []string{"features/c.feature:9"}},
		step{passed: true},
	)
	ctx := context.Background()

	_, err := g.RunOnModifications(ctx, []string{"features/a.feature"})
	require.NoError(t, err)

	_, err = g.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"features/c.feature:9"}, g.FailedPaths())

	_, err = g.RunAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, g.FailedPaths())
}

func TestDispatchError(t *testing.T) {
	setupProject(t)
	boom := errors.New("cucumber not installed")
	g, _ := newGuard(t, nil, step{err: boom})

	_, err := g.RunOnModifications(context.Background(), []string{"features/a.feature"})
	assert.ErrorIs(t, err, boom)
}

func TestLockedRunIsSkipped(t *testing.T) {
	setupProject(t)

	lockPath := filepath.Join(t.TempDir(), "run.lock")
	holder := filelock.NewFileLock(lockPath)
	acquired, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer holder.Unlock()

	cfg := config.DefaultConfig()
	d := &fakeDispatcher{t: t}
	g := New(cfg, d, filelock.NewFileLock(lockPath), logger.NewNoOpLogger())

	res, err := g.RunAll(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "locked", res.Reason)
	assert.Empty(t, d.runs)
}

func TestWithRealRunnerFocus(t *testing.T) {
	setupProject(t)
	require.NoError(t, os.WriteFile("features/b.feature", []byte("Feature: b\n  @focus\n  Scenario: x\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.KeepFailed = false
	g := New(cfg, runner.New(nil), nil, logger.NewNoOpLogger())
	g.SetDryRun(true)

	res, err := g.RunOnModifications(context.Background(), []string{"features/a.feature", "features/b.feature"})
	require.NoError(t, err)
	assert.Equal(t, focus.Focused, res.Focus)
	assert.Equal(t, []string{"cucumber", "features/b.feature:2"}, res.Command)
}

func TestRunPaths(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, nil, step{passed: false, failed: []string{"features/a.feature:4"}})
	ctx := context.Background()

	res, err := g.RunPaths(ctx, []string{"features/a.feature", "README.md"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	require.Len(t, d.runs, 1)
	assert.Equal(t, models.RunManual, d.runs[0].Kind)
	assert.Equal(t, []string{"features/a.feature"}, d.runs[0].Paths)
	assert.Empty(t, g.FailedPaths())

	res, err = g.RunPaths(ctx, []string{"lib/x.rb"})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, d.runs, 1)
}

// passingCommand is a runner.CommandRunner whose commands always succeed.
type passingCommand struct{ calls int }

func (p *passingCommand) Run(ctx context.Context, argv []string) error {
	p.calls++
	return nil
}

func TestRunIDIsLogged(t *testing.T) {
	setupProject(t)

	buf := &bytes.Buffer{}
	cmd := &passingCommand{}
	g := New(config.DefaultConfig(), runner.New(cmd), nil, logger.NewConsoleLogger(buf, "trace"))

	res, err := g.RunAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cmd.calls)
	require.NotEmpty(t, res.Run.ID)

	short, _, _ := strings.Cut(res.Run.ID, "-")
	out := buf.String()
	assert.Contains(t, out, "Running all (1 paths) ["+short+"]")
	assert.Contains(t, out, "all run passed")
	assert.Equal(t, 2, strings.Count(out, "["+short+"]"), out)
	assert.Contains(t, out, "0 failed paths in rerun.txt")
}

func TestRunIDsAreUnique(t *testing.T) {
	setupProject(t)
	g, d := newGuard(t, nil, step{passed: true}, step{passed: true})

	_, err := g.RunAll(context.Background())
	require.NoError(t, err)
	_, err = g.RunAll(context.Background())
	require.NoError(t, err)

	require.Len(t, d.runs, 2)
	assert.NotEmpty(t, d.runs[0].ID)
	assert.NotEqual(t, d.runs[0].ID, d.runs[1].ID)
}
