// Package resolver expands the roots of a build into the ordered list of
// files to parse.
//
// Each path is classified in turn: excluded paths are dropped, regular files
// are kept when new enough and parseable, and directories are expanded
// either through their .document manifest or by listing their children.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-zglob"

	"github.com/jamesainslie/quill/pkg/quill/logging"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

// ManifestName is the per-directory file listing the glob patterns that
// replace the directory's default listing.
const ManifestName = ".document"

// ErrUnsupportedFileType is returned for a path that is neither a regular
// file nor a directory.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// vcsDirs are version-control metadata directories never descended into.
var vcsDirs = map[string]bool{
	".git":   true,
	".svn":   true,
	".hg":    true,
	".bzr":   true,
	"CVS":    true,
	"_darcs": true,
}

var log = logging.Get("resolver")

// Prober reports whether a file can be parsed. It is consulted for files
// found by expanding directories.
type Prober interface {
	CanParse(path string) bool
}

// Options configures a resolution.
type Options struct {
	// Exclude drops matching paths before they are inspected. Nil excludes nothing.
	Exclude Matcher

	// Cutoff drops files modified before it, except forced top-level files.
	Cutoff types.Cutoff

	// Probe decides which discovered files are kept. Nil keeps none.
	Probe Prober
}

// Resolve expands roots into the list of files to parse, in traversal order
// and without deduplication.
//
// forceDoc applies only to roots themselves: a root naming a regular file is
// kept regardless of its kind and of the cutoff. Files found by expanding
// directories are always resolved with forceDoc=false.
func Resolve(roots []string, forceDoc bool, opts Options) ([]string, error) {
	r := &resolution{opts: opts}
	if err := r.resolve(roots, forceDoc); err != nil {
		return nil, err
	}
	log.Debug("resolved file set", "roots", len(roots), "files", len(r.files), "cutoff", opts.Cutoff.String())
	return r.files, nil
}

type resolution struct {
	opts  Options
	files []string

	// ancestors holds the directories being expanded, outermost first.
	ancestors []os.FileInfo
}

func (r *resolution) resolve(paths []string, forceDoc bool) error {
	for _, path := range paths {
		if r.opts.Exclude != nil && r.opts.Exclude.Match(path) {
			continue
		}

		in, err := types.Inspect(path)
		if err != nil {
			// Vanished between listing and inspection.
			continue
		}

		switch in.Kind {
		case types.KindFile:
			if r.opts.Cutoff.Stale(in.ModTime) && !forceDoc {
				continue
			}
			if forceDoc || (r.opts.Probe != nil && r.opts.Probe.CanParse(path)) {
				r.files = append(r.files, path)
			}

		case types.KindDir:
			if vcsDirs[filepath.Base(path)] {
				continue
			}
			if err := r.descend(path); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
		}
	}
	return nil
}

// descend resolves the contents of dir. A directory already on the current
// chain, reached again through a symlink, is skipped.
func (r *resolution) descend(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return nil
	}
	for _, a := range r.ancestors {
		if os.SameFile(a, info) {
			log.Debug("skipping directory cycle", "dir", dir)
			return nil
		}
	}

	r.ancestors = append(r.ancestors, info)
	defer func() { r.ancestors = r.ancestors[:len(r.ancestors)-1] }()

	children, err := r.expand(dir)
	if err != nil {
		return err
	}
	return r.resolve(children, false)
}

// expand returns the paths a directory stands for: the glob expansions of
// its manifest patterns when it has one, otherwise its immediate children.
func (r *resolution) expand(dir string) ([]string, error) {
	manifest := filepath.Join(dir, ManifestName)
	if f, err := os.Open(manifest); err == nil {
		patterns, err := ParseManifest(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading manifest %s: %w", manifest, err)
		}
		return expandPatterns(dir, patterns), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("skipping unreadable directory", "dir", dir, "error", err)
		return nil, nil
	}

	children := make([]string, 0, len(entries))
	for _, e := range entries {
		children = append(children, filepath.Join(dir, e.Name()))
	}
	return children, nil
}

// expandPatterns globs each pattern relative to dir and concatenates the
// matches in pattern order. Patterns that fail to expand are skipped.
func expandPatterns(dir string, patterns []string) []string {
	var out []string
	for _, pattern := range patterns {
		matches, err := zglob.Glob(filepath.Join(dir, pattern))
		if err != nil {
			log.Debug("skipping manifest pattern", "dir", dir, "pattern", pattern, "error", err)
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out
}
