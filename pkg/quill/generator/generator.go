// Package generator turns parsed artifacts into documentation output.
//
// Generators are looked up by name in a Registry. Each one writes its files
// into the current working directory; the build changes into the output
// directory before calling Generate.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jamesainslie/quill/pkg/quill/logging"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

// ErrUnknownGenerator is returned when no generator is registered under a name.
var ErrUnknownGenerator = errors.New("unknown generator")

var log = logging.Get("generator")

// Options configures a generator instance.
type Options struct {
	// Title is the documentation set title. Empty uses DefaultTitle.
	Title string
}

// DefaultTitle is used when no title is configured.
const DefaultTitle = "Documentation"

func (o Options) title() string {
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

// Generator writes documentation for a sorted set of artifacts.
type Generator interface {
	Generate(ctx context.Context, artifacts []*types.Artifact) error
}

// Factory creates a generator.
type Factory func(cfg Options) Generator

// Registry holds available generators.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry creates a registry holding the built-in generators.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("html", NewHTML)
	r.Register("json", NewJSON)
	r.Register("yaml", NewYAML)
	r.Register("store", NewStore)
	return r
}

// Register adds or replaces a generator.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Has reports whether a generator is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Get creates the generator registered under name.
func (r *Registry) Get(name string, cfg Options) (Generator, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownGenerator, name, r.Available())
	}
	return factory(cfg), nil
}

// Available returns the registered generator names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
