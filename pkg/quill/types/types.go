// Package types provides core data types for the quill documentation builder.
// It includes the inspected input path, the staleness cutoff, and the
// artifacts produced by parsers and consumed by generators.
package types

import (
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// PathKind classifies an inspected filesystem path.
type PathKind int

const (
	// KindOther is anything that is neither a regular file nor a directory
	// (devices, sockets, named pipes).
	KindOther PathKind = iota
	// KindFile is a regular file.
	KindFile
	// KindDir is a directory.
	KindDir
)

// String returns the string representation of the kind.
func (k PathKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "other"
	}
}

// InputPath is a filesystem path with its kind and modification time,
// read at resolution time.
type InputPath struct {
	// Path is the path as it was given or expanded.
	Path string

	// Kind is the file kind.
	Kind PathKind

	// ModTime is the last modification time.
	ModTime time.Time

	// Size is the file size in bytes (0 for directories).
	Size int64
}

// Inspect stats path and classifies it. Symlinks are followed.
func Inspect(path string) (InputPath, error) {
	info, err := os.Stat(path)
	if err != nil {
		return InputPath{}, err
	}

	kind := KindOther
	switch {
	case info.Mode().IsRegular():
		kind = KindFile
	case info.IsDir():
		kind = KindDir
	}

	return InputPath{
		Path:    path,
		Kind:    kind,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}

// Cutoff is the optional staleness cutoff for a build.
// The zero value means no cutoff (full rebuild).
type Cutoff struct {
	at    time.Time
	valid bool
}

// NoCutoff returns a cutoff that filters nothing.
func NoCutoff() Cutoff {
	return Cutoff{}
}

// CutoffAt returns a cutoff at t.
func CutoffAt(t time.Time) Cutoff {
	return Cutoff{at: t, valid: true}
}

// IsSet reports whether the cutoff is present.
func (c Cutoff) IsSet() bool {
	return c.valid
}

// Time returns the cutoff time. It is the zero time when the cutoff is absent.
func (c Cutoff) Time() time.Time {
	return c.at
}

// Stale reports whether a file modified at mtime is older than the cutoff.
// It is always false when the cutoff is absent.
func (c Cutoff) Stale(mtime time.Time) bool {
	return c.valid && mtime.Before(c.at)
}

// String returns the cutoff in RFC 1123 form, or "none".
func (c Cutoff) String() string {
	if !c.valid {
		return "none"
	}
	return c.at.Format(time.RFC1123Z)
}

// Section is one titled block of documentation inside an artifact.
type Section struct {
	// Title is the section heading (symbol name, markdown heading, yaml key).
	Title string `json:"title" yaml:"title"`

	// Level is the nesting level, starting at 1.
	Level int `json:"level" yaml:"level"`

	// Body is the section text.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`
}

// Artifact is the structured result of parsing one file.
// It is owned by the worker that created it until appended to the
// aggregated results.
type Artifact struct {
	// Path is the path the file was read from.
	Path string `json:"path" yaml:"path"`

	// Name is the slash-separated name relative to the build's base directory.
	Name string `json:"name" yaml:"name"`

	// Kind is the name of the parser that produced the artifact.
	Kind string `json:"kind" yaml:"kind"`

	// Title is the document title.
	Title string `json:"title" yaml:"title"`

	// Summary is the first paragraph or package synopsis.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Sections are the document sections in source order.
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty"`

	// Body is the decoded file content.
	Body string `json:"-" yaml:"-"`

	// Encoding is the source encoding named by a coding directive, empty for the default.
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`

	// ModTime is the file's modification time.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`

	// Size is the raw file size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// HumanSize returns the raw file size formatted as a human-readable string.
func (a *Artifact) HumanSize() string {
	return FormatSize(a.Size)
}

// SortArtifacts sorts artifacts by path in place. Dispatch appends in
// completion order, so consumers that need discovery-stable output call this.
func SortArtifacts(artifacts []*Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].Path < artifacts[j].Path
	})
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
