// Package watch reports batches of changed files under a project directory.
//
// Directories are watched recursively with fsnotify. Events for paths that
// match the configured doublestar patterns are collected until the debounce
// window passes quietly, then handed to OnChange as one sorted batch.
// OnChange runs on the watcher's own goroutine, so batches never overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// defaultIgnores are always excluded: VCS metadata, dependency caches and
// editor swap files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.cukeguard/**",
	"**/node_modules/**",
	"**/vendor/bundle/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// Logger receives watcher diagnostics.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Config holds the parameters for a Watcher.
type Config struct {
	BaseDir  string        // Root to watch; empty means the working directory
	Patterns []string      // Globs relative to BaseDir; empty matches everything
	Ignore   []string      // Extra globs merged with the default ignores
	Debounce time.Duration // Quiet period before OnChange fires

	// OnChange receives the changed paths relative to BaseDir.
	OnChange func(ctx context.Context, changed []string)

	Logger Logger
}

// Watcher monitors a directory tree and batches matching changes.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	baseDir  string
	ignores  []string
	debounce time.Duration
}

// New validates cfg and registers every non-ignored directory under BaseDir.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}

	for _, pat := range append(slices.Clone(cfg.Patterns), cfg.Ignore...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid watch pattern %q", pat)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		baseDir:  absBase,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
	}

	if _, err := w.addRecursive(absBase); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error if the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher closed unexpectedly")
			}
			changed := w.handleEvent(event)
			if len(changed) == 0 {
				continue
			}
			for _, rel := range changed {
				pending[rel] = struct{}{}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if w.cfg.OnChange != nil {
				w.cfg.OnChange(ctx, changed)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher closed unexpectedly")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logWarn(fmt.Sprintf("watch: %v, some changes may be missed", err))
				continue
			}
			w.logWarn(fmt.Sprintf("watch: %v", err))
		}
	}
}

// handleEvent returns the paths relative to BaseDir that the event should
// report. A new directory is added to the watch, and the matching files
// already inside it are reported since they produced no events of their own.
func (w *Watcher) handleEvent(event fsnotify.Event) []string {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return nil
	}

	rel, err := filepath.Rel(w.baseDir, event.Name)
	if err != nil {
		return nil
	}
	if w.isIgnored(rel) {
		return nil
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			found, err := w.addRecursive(event.Name)
			if err != nil {
				w.logWarn(err.Error())
			}
			if len(found) > 0 {
				w.logDebug(fmt.Sprintf("watch: %d matching files in new directory %s", len(found), rel))
			}
			return found
		}
	}

	if !w.matches(rel) {
		return nil
	}
	w.logDebug(fmt.Sprintf("watch: %s %s", event.Op, rel))
	return []string{filepath.ToSlash(rel)}
}

// addRecursive adds dir and all its non-ignored subdirectories. It returns
// the matching files found on the way, relative to BaseDir.
func (w *Watcher) addRecursive(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped rather than fatal.
			w.logWarn(fmt.Sprintf("watch: skipping %s: %v", path, err))
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil
		}

		if !d.IsDir() {
			if !w.isIgnored(rel) && w.matches(rel) {
				found = append(found, filepath.ToSlash(rel))
			}
			return nil
		}

		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
	return found, err
}

// isIgnored reports whether rel matches any ignore pattern.
func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// matches reports whether rel matches a watch pattern. No patterns means
// every path matches.
func (w *Watcher) matches(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, normalized); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *Watcher) logDebug(message string) {
	if w.cfg.Logger != nil {
		w.cfg.Logger.LogDebug(message)
	}
}

func (w *Watcher) logWarn(message string) {
	if w.cfg.Logger != nil {
		w.cfg.Logger.LogWarn(message)
	}
}
