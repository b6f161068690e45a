// Package guard decides what cucumber should run as files change.
//
// It follows guard-cucumber's rules: run everything on start, run the
// changed features on modification, keep re-running failed features until
// they pass, and run everything again once a failing suite goes green.
package guard

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/harrison/cukeguard/internal/config"
	"github.com/harrison/cukeguard/internal/filelock"
	"github.com/harrison/cukeguard/internal/focus"
	"github.com/harrison/cukeguard/internal/inspector"
	"github.com/harrison/cukeguard/internal/models"
	"github.com/harrison/cukeguard/internal/runner"
)

// Logger receives guard progress.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRunStart(run models.Run)
	LogFocus(tag string, result focus.Result)
	LogRunResult(result models.RunResult)
}

// Dispatcher runs cucumber for a run. *runner.Runner implements it.
type Dispatcher interface {
	Run(ctx context.Context, run models.Run, opts runner.Options) (models.RunResult, error)
}

// Guard holds the state carried between runs: failed paths and whether the
// last run passed. Methods are not safe for concurrent use; the watcher
// delivers batches one at a time.
type Guard struct {
	cfg        *config.Config
	dispatcher Dispatcher
	lock       *filelock.FileLock
	log        Logger
	dryRun     bool

	failedPaths []string
	lastFailed  bool
}

// New creates a Guard. lock may be nil to skip cross-process locking.
func New(cfg *config.Config, dispatcher Dispatcher, lock *filelock.FileLock, log Logger) *Guard {
	return &Guard{
		cfg:        cfg,
		dispatcher: dispatcher,
		lock:       lock,
		log:        log,
	}
}

// SetDryRun makes every run build its command without dispatching it.
func (g *Guard) SetDryRun(dryRun bool) {
	g.dryRun = dryRun
}

// FailedPaths returns the paths remembered from the last failing run.
func (g *Guard) FailedPaths() []string {
	return slices.Clone(g.failedPaths)
}

// Start runs every feature set when AllOnStart is enabled.
func (g *Guard) Start(ctx context.Context) error {
	g.log.LogInfo(fmt.Sprintf("cukeguard is watching %v", g.cfg.FeatureSets))
	if !g.cfg.AllOnStart {
		return nil
	}
	_, err := g.RunAll(ctx)
	return err
}

// RunAll runs every feature set. A pass forgets failed paths.
func (g *Guard) RunAll(ctx context.Context) (models.RunResult, error) {
	result, failed, err := g.run(ctx, models.RunAll, slices.Clone(g.cfg.FeatureSets))
	if err != nil || result.Skipped {
		return result, err
	}

	// A full run sees every failure, so it replaces what was remembered.
	g.failedPaths = nil
	if !result.Passed {
		g.failedPaths = failed
	}
	g.lastFailed = !result.Passed
	return result, nil
}

// RunOnModifications runs the changed feature paths plus any remembered
// failures. A pass after a failure triggers RunAll when AllAfterPass is set.
func (g *Guard) RunOnModifications(ctx context.Context, paths []string) (models.RunResult, error) {
	if g.cfg.KeepFailed {
		paths = append(slices.Clone(paths), g.failedPaths...)
	}
	paths = inspector.Clean(paths, g.cfg.FeatureSets)
	if len(paths) == 0 {
		g.log.LogDebug("No runnable feature paths in change set")
		return models.RunResult{Run: models.Run{Kind: models.RunModified}, Skipped: true, Reason: "no feature paths"}, nil
	}

	result, failed, err := g.run(ctx, models.RunModified, paths)
	if err != nil || result.Skipped {
		return result, err
	}

	if !result.Passed {
		g.failedPaths = mergePaths(g.failedPaths, failed)
		g.lastFailed = true
		return result, nil
	}

	g.failedPaths = nil
	if g.cfg.AllAfterPass && g.lastFailed {
		g.log.LogInfo("Previously failing features pass, running all features")
		return g.RunAll(ctx)
	}
	g.lastFailed = false
	return result, nil
}

// RunPaths runs paths once, as requested on the command line. Remembered
// failures are neither added to the run nor updated by it.
func (g *Guard) RunPaths(ctx context.Context, paths []string) (models.RunResult, error) {
	paths = inspector.Clean(paths, g.cfg.FeatureSets)
	if len(paths) == 0 {
		g.log.LogWarn(fmt.Sprintf("No feature paths inside %v to run", g.cfg.FeatureSets))
		return models.RunResult{Run: models.Run{Kind: models.RunManual}, Skipped: true, Reason: "no feature paths"}, nil
	}
	result, _, err := g.run(ctx, models.RunManual, paths)
	return result, err
}

// run dispatches one cucumber run under the project lock and returns the
// failed paths cucumber recorded in the rerun file.
func (g *Guard) run(ctx context.Context, kind models.RunKind, paths []string) (models.RunResult, []string, error) {
	run := models.Run{ID: uuid.NewString(), Kind: kind, Paths: paths}
	g.log.LogRunStart(run)

	opts := runner.Options{
		Cmd:            g.cfg.Cmd,
		AdditionalArgs: g.cfg.CmdAdditionalArgs,
		FocusOn:        g.cfg.FocusOn,
		KeepFailed:     g.cfg.KeepFailed,
		RerunFile:      g.cfg.RerunFile,
		DryRun:         g.dryRun,
	}

	var result models.RunResult
	dispatch := func() error {
		var err error
		result, err = g.dispatcher.Run(ctx, run, opts)
		return err
	}

	var err error
	if g.lock != nil {
		err = g.lock.TryRun(dispatch)
	} else {
		err = dispatch()
	}

	if errors.Is(err, filelock.ErrLocked) {
		g.log.LogWarn(fmt.Sprintf("Another cucumber run holds %s, skipping", g.lock.Path()))
		result = models.RunResult{Run: run, Skipped: true, Reason: "locked"}
		g.log.LogRunResult(result)
		return result, nil, nil
	}
	if err != nil {
		g.log.LogError(err.Error())
		return result, nil, err
	}

	if result.Focus != focus.NotApplicable {
		g.log.LogFocus(g.cfg.FocusOn, focus.Result{Outcome: result.Focus, Paths: result.Paths})
	}
	if opts.DryRun && len(result.Command) > 0 {
		g.log.LogInfo("Would run: " + result.CommandLine())
	}
	g.log.LogRunResult(result)

	if !g.cfg.KeepFailed || result.Skipped {
		return result, nil, nil
	}
	failed, err := runner.ReadFailedPaths(g.cfg.RerunFile)
	if err != nil {
		g.log.LogWarn(err.Error())
	}
	g.log.LogTrace(fmt.Sprintf("%d failed paths in %s: %v", len(failed), g.cfg.RerunFile, failed))
	return result, failed, nil
}

// mergePaths appends the entries of add missing from base.
func mergePaths(base, add []string) []string {
	out := slices.Clone(base)
	for _, p := range add {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
