package resolver

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Matcher decides whether a path is excluded.
type Matcher interface {
	Match(path string) bool
}

// GlobMatcher excludes paths matching any of a set of glob patterns. A
// pattern matches if it matches either the slash-separated path or its base
// name, so "*.tmp" excludes temp files at any depth and "build/**" excludes
// a subtree.
type GlobMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// CompileExclude compiles patterns into a GlobMatcher. An empty pattern list
// yields a matcher that excludes nothing.
func CompileExclude(patterns []string) (*GlobMatcher, error) {
	m := &GlobMatcher{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether path matches any exclude pattern.
func (m *GlobMatcher) Match(path string) bool {
	if m == nil || len(m.globs) == 0 {
		return false
	}

	slashed := filepath.ToSlash(filepath.Clean(path))
	base := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(slashed) || g.Match(base) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *GlobMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}
