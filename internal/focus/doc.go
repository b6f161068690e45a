// Package focus rewrites cucumber feature paths so a run only covers the
// sections tagged with a focus tag.
//
// If foo.feature carries the tag "@focus" on lines 8 and 16, the path
// "foo.feature" becomes "foo.feature:8:16", which is cucumber's syntax for
// running the scenarios at those lines. Directories are expanded to every
// "**/*.feature" file beneath them. Paths that already carry a location
// ("foo.feature:12") are treated as pre-focused and left alone.
//
// # Main Components
//
// Focus - rewrites a list of paths and reports one of three outcomes:
//   - NotApplicable: no paths were given
//   - Unfocused: no path contained the tag, Paths is the input unchanged
//   - Focused: Paths holds only the annotated paths that matched
//
// ScanPathForTag - rewrites a single path (file or directory).
//
// All functions are stateless and synchronous. Files are scanned one at a
// time in input order, each opened and closed before the next.
package focus
