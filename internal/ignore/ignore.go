// Package ignore provides gitignore-style pattern matching used to hide rows
// from printed listings.
package ignore

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"glcm/internal/object"
)

// Pattern represents a single ignore pattern with its properties.
type Pattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // Pattern starts with / (matches from root only)
}

// Matcher holds compiled ignore patterns.
type Matcher struct {
	patterns []Pattern
}

// Compile creates a matcher from a list of pattern lines.
func Compile(patterns []string) *Matcher {
	m := &Matcher{}
	for _, line := range patterns {
		m.AddPattern(line)
	}
	return m
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// AddPattern adds a single pattern string to the matcher.
func (m *Matcher) AddPattern(line string) {
	line = strings.TrimSpace(line)

	// Skip empty lines and comments
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p := Pattern{}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	// Unanchored patterns without a slash match the basename at any depth.
	if !p.anchored && !strings.Contains(line, "/") {
		line = "**/" + line
	}

	p.pattern = line
	m.patterns = append(m.patterns, p)
}

// Match checks if a repository-relative path is excluded. Later patterns win,
// so a negated pattern can re-include a path.
func (m *Matcher) Match(p string, isDir bool) bool {
	if m.Empty() {
		return false
	}
	p = strings.TrimPrefix(p, "./")

	ignored := false
	for _, pat := range m.patterns {
		if pat.dirOnly && !isDir {
			if matchParent(pat.pattern, p) {
				ignored = !pat.negated
			}
			continue
		}
		if matchPattern(pat.pattern, p) {
			ignored = !pat.negated
		}
	}
	return ignored
}

// matchParent checks if a file sits inside a directory matching pattern.
func matchParent(pattern, p string) bool {
	parts := strings.Split(p, "/")
	for i := 1; i < len(parts); i++ {
		if matchPattern(pattern, strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, p string) bool {
	if matched, _ := doublestar.Match(pattern, p); matched {
		return true
	}
	// "vendor" also covers everything below vendor/
	if !strings.HasSuffix(pattern, "/**") {
		matched, _ := doublestar.Match(pattern+"/**", p)
		return matched
	}
	return false
}

// Filter drops the entries of the directory at dir that the matcher excludes.
// dir is a normalized repository-relative path ("" for the root).
func (m *Matcher) Filter(dir string, entries []object.AnnotatedEntry) []object.AnnotatedEntry {
	if m.Empty() {
		return entries
	}
	kept := make([]object.AnnotatedEntry, 0, len(entries))
	for _, e := range entries {
		if m.Match(path.Join(dir, e.Name), e.Kind == object.KindDirectory) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
