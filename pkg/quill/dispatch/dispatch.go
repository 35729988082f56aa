// Package dispatch parses a list of files on a fixed pool of workers and
// collects the resulting artifacts.
//
// A producer feeds paths into a bounded queue holding three items per
// worker, followed by one stop item per worker. Each worker parses what it
// dequeues and appends the artifact to a shared slice under a mutex. The
// first worker error cancels the run.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/quill/pkg/quill/logging"
	"github.com/jamesainslie/quill/pkg/quill/parser"
	"github.com/jamesainslie/quill/pkg/quill/stats"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

// ErrParseFailure wraps any error raised while reading or parsing a file.
var ErrParseFailure = errors.New("parse failed")

// QueueFactor is the queue capacity per worker.
const QueueFactor = 3

var log = logging.Get("dispatch")

// Options configures a dispatch run.
type Options struct {
	// BaseDir is the directory artifact names are made relative to.
	// Empty uses the working directory.
	BaseDir string

	// Parser is passed to every parser the registry builds.
	Parser parser.Options
}

// Validate applies defaults.
func (o *Options) Validate() error {
	if o.BaseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving base directory: %w", err)
		}
		o.BaseDir = wd
	}
	return nil
}

// workItem is one queued file. A stop item ends the worker that takes it.
type workItem struct {
	path string
	stop bool
}

type pool struct {
	registry *parser.Registry
	stats    *stats.Stats
	opts     Options

	results   []*types.Artifact
	resultsMu sync.Mutex
}

// Run parses files on workers goroutines and returns one artifact per file,
// in completion order. On the first failure the remaining work is abandoned
// and no artifacts are returned.
//
// st is begun with the file count and finished before Run returns. A nil
// st is replaced by a quiet tracker.
func Run(ctx context.Context, files []string, workers int, registry *parser.Registry, st *stats.Stats, opts Options) ([]*types.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		st = stats.New(stats.Options{Verbosity: stats.Quiet})
	}

	p := &pool{
		registry: registry,
		stats:    st,
		opts:     opts,
		results:  make([]*types.Artifact, 0, len(files)),
	}

	st.Begin(len(files), workers)
	defer st.Done()

	queue := make(chan workItem, QueueFactor*workers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			return p.work(gctx, id, queue)
		})
	}

	g.Go(func() error {
		return produce(gctx, queue, files, workers)
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	log.Debug("dispatch complete", "files", len(files), "artifacts", len(p.results), "workers", workers)
	return p.results, nil
}

// produce enqueues every path in order, then one stop item per worker.
// Sends block while the queue is full.
func produce(ctx context.Context, queue chan<- workItem, files []string, workers int) error {
	send := func(item workItem) error {
		select {
		case queue <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, path := range files {
		if err := send(workItem{path: path}); err != nil {
			return err
		}
	}
	for i := 0; i < workers; i++ {
		if err := send(workItem{stop: true}); err != nil {
			return err
		}
	}
	return nil
}

func (p *pool) work(ctx context.Context, id int, queue <-chan workItem) error {
	for {
		var item workItem
		select {
		case item = <-queue:
		case <-ctx.Done():
			return nil
		}

		if item.stop {
			return nil
		}

		p.stats.AddFile(item.path)

		artifact, err := p.parse(item.path)
		if err != nil {
			log.Error("parse failed", "worker", id, "path", item.path, "error", err)
			return fmt.Errorf("%w: %s: %w", ErrParseFailure, item.path, err)
		}

		p.resultsMu.Lock()
		p.results = append(p.results, artifact)
		p.resultsMu.Unlock()
	}
}

func (p *pool) parse(path string) (*types.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content, enc := decode(raw)

	pctx := parser.Context{
		Path:     path,
		Name:     relativeName(p.opts.BaseDir, path),
		ModTime:  info.ModTime(),
		Size:     int64(len(raw)),
		Encoding: enc,
	}

	prs, err := p.registry.ForFile(pctx, content, p.opts.Parser, p.stats)
	if err != nil {
		return nil, err
	}

	return prs.Scan()
}

// relativeName returns path relative to base with forward slashes, or the
// cleaned path itself when it lies outside base.
func relativeName(base, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(rel)
}
