package focus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Separator joins a feature path with its line numbers ("foo.feature:3:7").
// A path that already contains it is considered pre-focused.
const Separator = ":"

// FeatureGlob selects the feature files scanned beneath a directory.
const FeatureGlob = "**/*.feature"

// Outcome classifies the result of Focus.
type Outcome int

const (
	// NotApplicable means Focus was called without any paths.
	NotApplicable Outcome = iota
	// Unfocused means no path contained the tag; Result.Paths is the input.
	Unfocused
	// Focused means Result.Paths holds only annotated paths.
	Focused
)

// String returns a human-readable representation of the outcome
func (o Outcome) String() string {
	switch o {
	case NotApplicable:
		return "not applicable"
	case Unfocused:
		return "unfocused"
	case Focused:
		return "focused"
	default:
		return "unknown"
	}
}

// Result is the outcome of Focus together with the paths to run.
type Result struct {
	Outcome Outcome
	Paths   []string
}

// Focus rewrites paths to focus on the lines tagged with tag.
//
// With no paths the outcome is NotApplicable. When no path contains the tag
// the outcome is Unfocused and Paths is the caller's slice, untouched, so the
// caller can fall back to running everything. Otherwise the outcome is
// Focused and Paths lists only the annotated files that matched, in input
// order.
func Focus(paths []string, tag string) (Result, error) {
	if len(paths) == 0 {
		return Result{Outcome: NotApplicable}, nil
	}

	var focused []string
	for _, path := range paths {
		annotated, err := ScanPathForTag(path, tag)
		if err != nil {
			return Result{}, err
		}
		focused = append(focused, annotated...)
	}

	if len(focused) == 0 {
		return Result{Outcome: Unfocused, Paths: paths}, nil
	}
	return Result{Outcome: Focused, Paths: focused}, nil
}

// ScanPathForTag returns the annotated paths for every file under path that
// contains tag. A directory is expanded to its "**/*.feature" files in the
// order the glob walks them, skipping dot-files and dot-directories, and
// each file keeps path exactly as given as its prefix. Files without a
// match contribute nothing.
//
// A path that already carries a location ("bar.feature:12") returns an empty
// slice without touching the filesystem.
func ScanPathForTag(path, tag string) ([]string, error) {
	annotated := []string{}
	if strings.Contains(path, Separator) {
		return annotated, nil
	}

	files, err := expand(path)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		lines, err := scanLinesForTag(file, tag)
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			continue
		}
		annotated = append(annotated, annotate(file, lines))
	}
	return annotated, nil
}

// expand returns the files to scan for path. Anything that is not a
// directory, including a path that does not exist, is scanned as a file so
// the open reports the failure.
func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(path), FeatureGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s in %s: %w", FeatureGlob, path, err)
	}

	prefix := path
	if !strings.HasSuffix(prefix, "/") && !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		if isHidden(match) {
			continue
		}
		files = append(files, prefix+filepath.FromSlash(match))
	}
	return files, nil
}

// isHidden reports whether any segment of the slash-separated match starts
// with a dot. Such entries are never expanded from a directory.
func isHidden(match string) bool {
	for _, segment := range strings.Split(match, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

// annotate joins path and line numbers with Separator.
func annotate(path string, lines []int) string {
	var b strings.Builder
	b.WriteString(path)
	for _, n := range lines {
		b.WriteString(Separator)
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// scanLinesForTag returns the 1-based numbers of the lines in path that
// contain tag, in ascending order.
func scanLinesForTag(path, tag string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	defer f.Close()

	var lines []int
	r := bufio.NewReader(f)
	for lineno := 1; ; lineno++ {
		line, err := r.ReadString('\n')
		if len(line) > 0 && strings.Contains(line, tag) {
			lines = append(lines, lineno)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}
