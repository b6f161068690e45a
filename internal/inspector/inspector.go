// Package inspector filters changed paths down to what cucumber can run.
package inspector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/harrison/cukeguard/internal/focus"
)

// Clean keeps the paths cucumber can run: feature files (optionally with a
// ":line" suffix) and directories inside one of featureSets. Duplicates and
// paths already covered by another kept path are dropped. Order is kept.
func Clean(paths []string, featureSets []string) []string {
	seen := make(map[string]bool, len(paths))
	var candidates []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		if isFeatureFile(p, featureSets) || isFeatureDir(p, featureSets) {
			candidates = append(candidates, p)
		}
	}

	cleaned := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if !coveredByOther(p, candidates) {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

// filePart strips a ":line" location from path.
func filePart(path string) string {
	if i := strings.Index(path, focus.Separator); i >= 0 {
		return path[:i]
	}
	return path
}

// isFeatureFile reports whether path (minus any location) is an existing
// .feature file inside a feature set.
func isFeatureFile(path string, featureSets []string) bool {
	file := filepath.Clean(filePart(path))
	if !inFeatureSet(file, featureSets, focus.FeatureGlob) {
		return false
	}
	info, err := os.Stat(file)
	return err == nil && info.Mode().IsRegular()
}

// isFeatureDir reports whether path is an existing directory that is a
// feature set or lies inside one. Paths with an extension never qualify.
func isFeatureDir(path string, featureSets []string) bool {
	if strings.Contains(path, focus.Separator) || filepath.Ext(path) != "" {
		return false
	}
	dir := filepath.Clean(path)
	if !inFeatureSet(dir, featureSets, "") && !inFeatureSet(dir, featureSets, "**") {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// inFeatureSet matches path against each set joined with suffix.
func inFeatureSet(path string, featureSets []string, suffix string) bool {
	for _, set := range featureSets {
		pattern := filepath.Clean(set)
		if suffix != "" {
			pattern = filepath.Join(pattern, suffix)
		}
		if ok, err := doublestar.PathMatch(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// coveredByOther reports whether another candidate already runs path: a
// directory containing it, or the same file without a location.
func coveredByOther(path string, candidates []string) bool {
	file := filepath.Clean(filePart(path))
	for _, other := range candidates {
		if other == path {
			continue
		}
		o := filepath.Clean(other)
		if strings.Contains(other, focus.Separator) {
			continue
		}
		if o == file && file != filepath.Clean(path) {
			return true
		}
		if strings.HasPrefix(file, o+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
