// Package parser turns the content of one source file into a documentation
// artifact.
//
// Parsers are selected through a Registry, an ordered list of file-kind
// entries each made of a predicate and a factory. The first entry whose
// predicate accepts a path wins:
//
//	reg := parser.NewDefaultRegistry()
//	if reg.CanParse("README.md") {
//	    p, err := reg.ForFile(ctx, content, parser.Options{}, stats)
//	    ...
//	    artifact, err := p.Scan()
//	}
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// ErrNoParser is returned when no entry accepts a file and the registry
// has no fallback.
var ErrNoParser = errors.New("no parser for file")

// FallbackKind is the entry used for files no predicate accepts.
const FallbackKind = "simple"

// Context describes the file being parsed.
type Context struct {
	// Path is the path the file was read from.
	Path string

	// Name is the slash-separated path relative to the build's base directory.
	Name string

	// ModTime is the file's modification time.
	ModTime time.Time

	// Size is the raw size in bytes, before any decoding.
	Size int64

	// Encoding is the source encoding named by a coding directive, if any.
	Encoding string
}

// Options configures parsers.
type Options struct {
	// Unexported includes unexported Go declarations.
	Unexported bool
}

// ProgressSink receives the byte count of each scanned file.
type ProgressSink interface {
	AddBytes(n int64)
}

// Parser scans one file.
type Parser interface {
	// Scan parses the file and returns its artifact.
	Scan() (*types.Artifact, error)
}

// Predicate reports whether an entry handles path.
type Predicate func(path string) bool

// Factory builds a parser for one file. content is already decoded to UTF-8.
type Factory func(ctx Context, content []byte, cfg Options) Parser

type entry struct {
	name      string
	predicate Predicate
	factory   Factory
}

// Registry is an ordered set of parser entries.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with the built-in parsers:
// markdown, golang, yaml, and the simple text fallback.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("markdown", ByExtension(".md", ".markdown"), NewMarkdown)
	r.Register("golang", ByExtension(".go"), NewGolang)
	r.Register("yaml", ByExtension(".yaml", ".yml"), NewYAML)
	r.Register(FallbackKind, isSimpleText, NewSimple)
	return r
}

// Register appends an entry. An entry with the same name is replaced in
// place, keeping its position.
func (r *Registry) Register(name string, predicate Predicate, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries[i] = entry{name: name, predicate: predicate, factory: factory}
			return
		}
	}
	r.entries = append(r.entries, entry{name: name, predicate: predicate, factory: factory})
}

// CanParse reports whether any entry accepts path.
func (r *Registry) CanParse(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// KindOf returns the name of the entry that accepts path, or "".
func (r *Registry) KindOf(path string) string {
	e, ok := r.lookup(path)
	if !ok {
		return ""
	}
	return e.name
}

// ForFile builds the parser for the file described by ctx. Files no
// predicate accepts get the fallback entry. st, when not nil, is credited
// with the file's raw size after a successful Scan.
func (r *Registry) ForFile(ctx Context, content []byte, cfg Options, st ProgressSink) (Parser, error) {
	e, ok := r.lookup(ctx.Path)
	if !ok {
		e, ok = r.byName(FallbackKind)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoParser, ctx.Path)
		}
	}

	p := e.factory(ctx, content, cfg)
	if st == nil {
		return p, nil
	}
	return &countingParser{Parser: p, sink: st, size: ctx.Size}, nil
}

// Kinds returns entry names in registration order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

func (r *Registry) lookup(path string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.predicate(path) {
			return e, true
		}
	}
	return entry{}, false
}

func (r *Registry) byName(name string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.name == name {
			return e, true
		}
	}
	return entry{}, false
}

type countingParser struct {
	Parser
	sink ProgressSink
	size int64
}

func (c *countingParser) Scan() (*types.Artifact, error) {
	a, err := c.Parser.Scan()
	if err == nil {
		c.sink.AddBytes(c.size)
	}
	return a, err
}

// ByExtension returns a predicate matching file extensions, case-insensitively.
func ByExtension(exts ...string) Predicate {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = true
	}
	return func(path string) bool {
		return set[strings.ToLower(filepath.Ext(path))]
	}
}

// simpleNames are extensionless files conventionally holding plain text.
var simpleNames = map[string]bool{
	"README":       true,
	"LICENSE":      true,
	"LICENCE":      true,
	"CHANGELOG":    true,
	"CONTRIBUTING": true,
	"AUTHORS":      true,
	"NOTICE":       true,
}

var simpleExt = ByExtension(".txt", ".rdoc")

func isSimpleText(path string) bool {
	if simpleExt(path) {
		return true
	}
	base := filepath.Base(path)
	return filepath.Ext(base) == "" && simpleNames[strings.ToUpper(base)]
}

// newArtifact fills the fields every parser shares.
func newArtifact(ctx Context, kind string, content []byte) *types.Artifact {
	name := ctx.Name
	if name == "" {
		name = filepath.ToSlash(ctx.Path)
	}
	return &types.Artifact{
		Path:     ctx.Path,
		Name:     name,
		Kind:     kind,
		Title:    filepath.Base(ctx.Path),
		Body:     string(content),
		Encoding: ctx.Encoding,
		ModTime:  ctx.ModTime,
		Size:     ctx.Size,
	}
}
