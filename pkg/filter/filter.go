// Package filter decides whether a path belongs in the repository snapshot.
package filter

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Config holds the scope rules for a watched tree. All rule sets are fixed
// at startup; an empty optional set disables the corresponding check.
type Config struct {
	Extensions      []string // Suffix allow-list; a file must match at least one.
	ExcludeSuffixes []string // Suffix block-list; overrides the allow-list.
	ExcludeDirs     []string // Directory names whose subtrees are out of scope.
	SensitiveFiles  []string // Exact filenames that are never included.
	ExcludeRegexes  []string // Patterns matched against the bare filename only.
}

// Filter is the compiled, immutable form of a Config. It is safe for
// concurrent use.
type Filter struct {
	extensions      []string
	excludeSuffixes []string
	excludeDirs     map[string]struct{}
	sensitiveFiles  map[string]struct{}
	excludeRegexes  []*regexp.Regexp
}

// New compiles the configured rules. It returns an error if any exclusion
// regex does not compile or if the extension allow-list is empty.
func New(cfg Config) (*Filter, error) {
	if len(cfg.Extensions) == 0 {
		return nil, fmt.Errorf("filter: at least one extension is required")
	}

	compiled := &Filter{
		extensions:      append([]string{}, cfg.Extensions...),
		excludeSuffixes: append([]string{}, cfg.ExcludeSuffixes...),
		excludeDirs:     make(map[string]struct{}, len(cfg.ExcludeDirs)),
		sensitiveFiles:  make(map[string]struct{}, len(cfg.SensitiveFiles)),
	}
	for _, directoryName := range cfg.ExcludeDirs {
		compiled.excludeDirs[directoryName] = struct{}{}
	}
	for _, fileName := range cfg.SensitiveFiles {
		compiled.sensitiveFiles[fileName] = struct{}{}
	}
	for _, pattern := range cfg.ExcludeRegexes {
		expression, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter: compile exclude regex %q: %w", pattern, err)
		}
		compiled.excludeRegexes = append(compiled.excludeRegexes, expression)
	}
	return compiled, nil
}

// Includes reports whether the slash-separated path, relative to the watched
// root, is in scope. It is a pure predicate: it never touches the
// filesystem, so it gives the same answer for a path whether or not a file
// currently exists there.
func (f *Filter) Includes(relativePath string) bool {
	fileName := path.Base(relativePath)

	// The sensitive-name block-list wins unconditionally.
	if _, sensitive := f.sensitiveFiles[fileName]; sensitive {
		return false
	}

	matchesExtension := false
	for _, extension := range f.extensions {
		if strings.HasSuffix(fileName, extension) {
			matchesExtension = true
			break
		}
	}
	if !matchesExtension {
		return false
	}

	for _, suffix := range f.excludeSuffixes {
		if strings.HasSuffix(fileName, suffix) {
			return false
		}
	}

	for _, expression := range f.excludeRegexes {
		if expression.MatchString(fileName) {
			return false
		}
	}

	return !f.underExcludedDir(relativePath)
}

// PrunesDir reports whether a directory with the given name should be
// skipped entirely during a tree walk. Matching is by exact name, so a
// directory literally called "mytest-data" is not pruned by a rule for
// "test".
func (f *Filter) PrunesDir(directoryName string) bool {
	_, excluded := f.excludeDirs[directoryName]
	return excluded
}

// underExcludedDir checks directory containment: the path is excluded when
// any of its ancestor segments names an excluded directory.
func (f *Filter) underExcludedDir(relativePath string) bool {
	if len(f.excludeDirs) == 0 {
		return false
	}
	cleaned := path.Clean(strings.TrimPrefix(relativePath, "/"))
	segments := strings.Split(cleaned, "/")
	if len(segments) < 2 {
		return false
	}
	for _, segment := range segments[:len(segments)-1] {
		if _, excluded := f.excludeDirs[segment]; excluded {
			return true
		}
	}
	return false
}
