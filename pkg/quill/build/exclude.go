package build

import (
	"path/filepath"
	"strings"

	"github.com/jamesainslie/quill/pkg/quill/resolver"
)

// excludeSet drops configured patterns and the output directory itself.
type excludeSet struct {
	globs  *resolver.GlobMatcher
	outDir string
}

func (e *excludeSet) Match(path string) bool {
	if e.globs.Match(path) {
		return true
	}
	if e.outDir == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return abs == e.outDir || strings.HasPrefix(abs, e.outDir+string(filepath.Separator))
}

var _ resolver.Matcher = (*excludeSet)(nil)
