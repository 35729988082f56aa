// Package build runs one documentation build: it validates the output
// directory, resolves the input file set, parses it on a worker pool and
// hands the artifacts to a generator.
//
// A Builder owns its parser and generator registries. Run changes the
// process working directory while the generator runs, so builds must not
// overlap within one process.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/quill/pkg/quill/config"
	"github.com/jamesainslie/quill/pkg/quill/dispatch"
	"github.com/jamesainslie/quill/pkg/quill/generator"
	"github.com/jamesainslie/quill/pkg/quill/logging"
	"github.com/jamesainslie/quill/pkg/quill/metrics"
	"github.com/jamesainslie/quill/pkg/quill/outdir"
	"github.com/jamesainslie/quill/pkg/quill/parser"
	"github.com/jamesainslie/quill/pkg/quill/resolver"
	"github.com/jamesainslie/quill/pkg/quill/runlog"
	"github.com/jamesainslie/quill/pkg/quill/stats"
	"github.com/jamesainslie/quill/pkg/quill/tuner"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

// ErrGeneratorFailure wraps any error returned by a generator.
var ErrGeneratorFailure = errors.New("generator failed")

var log = logging.Get("build")

// Diagrammer is an optional hook run over the sorted artifacts before
// generation.
type Diagrammer interface {
	Diagram(ctx context.Context, artifacts []*types.Artifact) error
}

// Options configures a Builder.
type Options struct {
	// Parsers is the parser registry. Nil uses parser.NewDefaultRegistry.
	Parsers *parser.Registry

	// Generators is the generator registry. Nil uses
	// generator.NewDefaultRegistry.
	Generators *generator.Registry

	// Diagrammer runs before generation when set.
	Diagrammer Diagrammer

	// OnProgress receives throttled dispatch progress.
	OnProgress func(stats.Progress)

	// Out receives the stats summary and verbose per-file lines. Nil uses
	// os.Stderr.
	Out io.Writer
}

// Builder runs builds.
type Builder struct {
	parsers    *parser.Registry
	generators *generator.Registry
	diagrammer Diagrammer
	onProgress func(stats.Progress)
	out        io.Writer
}

// New creates a Builder.
func New(opts Options) *Builder {
	if opts.Parsers == nil {
		opts.Parsers = parser.NewDefaultRegistry()
	}
	if opts.Generators == nil {
		opts.Generators = generator.NewDefaultRegistry()
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	return &Builder{
		parsers:    opts.Parsers,
		generators: opts.Generators,
		diagrammer: opts.Diagrammer,
		onProgress: opts.OnProgress,
		out:        opts.Out,
	}
}

// Parsers returns the builder's parser registry.
func (b *Builder) Parsers() *parser.Registry {
	return b.parsers
}

// Generators returns the builder's generator registry.
func (b *Builder) Generators() *generator.Registry {
	return b.generators
}

// Result describes a finished build.
type Result struct {
	// Output is the absolute output directory, or the working directory in
	// single-file mode.
	Output string

	// Cutoff is the staleness cutoff read from the output marker.
	Cutoff types.Cutoff

	// Start is when file resolution began. It is written to the marker.
	Start time.Time

	// Files are the resolved input paths in traversal order.
	Files []string

	// Artifacts are the parsed files sorted by path.
	Artifacts []*types.Artifact

	// NoNewerFiles is set when nothing needed parsing and no output was
	// generated.
	NoNewerFiles bool

	// Workers is the dispatch pool size.
	Workers int

	// Progress is the final stats snapshot.
	Progress stats.Progress

	// HistoryID is the run history entry ID, empty when history is off.
	HistoryID string
}

// Run performs one build as configured by cfg.
func (b *Builder) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	verbosity := stats.Normal
	switch {
	case cfg.Quiet:
		verbosity = stats.Quiet
	case cfg.Verbose:
		verbosity = stats.Verbose
	}
	st := stats.New(stats.Options{Verbosity: verbosity, OnProgress: b.onProgress, Out: b.out})

	res := &Result{}
	err := b.run(ctx, cfg, st, res)
	res.Progress = st.Snapshot()

	if !cfg.Quiet {
		if perr := st.Print(b.out); perr != nil {
			log.Warn("printing summary", "error", perr)
		}
	}

	b.record(cfg, res, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Builder) run(ctx context.Context, cfg *config.Config, st *stats.Stats, res *Result) error {
	roots := cfg.Files
	if len(roots) == 0 {
		roots = []string{"."}
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	res.Output = wd

	exclude, err := resolver.CompileExclude(cfg.Exclude)
	if err != nil {
		return err
	}
	matcher := &excludeSet{globs: exclude}

	if !cfg.SingleFile {
		dir, err := filepath.Abs(outputDir(cfg))
		if err != nil {
			return err
		}
		res.Output = dir
		matcher.outDir = dir

		if res.Cutoff, err = outdir.Prepare(dir, cfg.Force); err != nil {
			return err
		}

		lock, err := outdir.Acquire(dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Warn("releasing lock", "error", err)
			}
		}()
	}

	res.Start = time.Now()

	res.Files, err = resolver.Resolve(roots, true, resolver.Options{
		Exclude: matcher,
		Cutoff:  res.Cutoff,
		Probe:   b.parsers,
	})
	if err != nil {
		return err
	}

	res.Workers = tuner.Auto(cfg.Workers)
	log.Debug("dispatching", "files", len(res.Files), "workers", res.Workers, "cutoff", res.Cutoff.String())

	artifacts, err := dispatch.Run(ctx, res.Files, res.Workers, b.parsers, st, dispatch.Options{
		BaseDir: wd,
		Parser:  parser.Options{Unexported: cfg.All},
	})
	if err != nil {
		return err
	}

	if len(artifacts) == 0 {
		log.Info("no newer files", "output", res.Output)
		res.NoNewerFiles = true
		return nil
	}

	name := generatorName(cfg)
	gen, err := b.generators.Get(name, generator.Options{Title: cfg.Title})
	if err != nil {
		return err
	}

	types.SortArtifacts(artifacts)
	res.Artifacts = artifacts

	if b.diagrammer != nil {
		if err := b.diagrammer.Diagram(ctx, artifacts); err != nil {
			return fmt.Errorf("drawing diagrams: %w", err)
		}
	}

	generate := func() error {
		if err := gen.Generate(ctx, artifacts); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrGeneratorFailure, name, err)
		}
		return nil
	}

	if cfg.SingleFile {
		return generate()
	}

	if err := inDir(res.Output, generate); err != nil {
		return err
	}

	return outdir.Finalize(res.Output, res.Start)
}

// record appends a history entry and writes the metrics textfile. Neither
// affects the build outcome.
func (b *Builder) record(cfg *config.Config, res *Result, buildErr error) {
	status, outcome := runlog.StatusOK, metrics.OutcomeSuccess
	switch {
	case buildErr != nil:
		status, outcome = runlog.StatusFailed, metrics.OutcomeFailed
	case res.NoNewerFiles:
		status, outcome = runlog.StatusUpToDate, metrics.OutcomeUpToDate
	}

	if cfg.Metrics.Textfile != "" {
		e := metrics.NewExporter()
		e.Observe(res.Progress, outcome, time.Now())
		if err := e.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("metrics export failed", "error", err)
		}
	}

	if !cfg.History.Enabled {
		return
	}

	dir := cfg.History.Path
	if dir == "" {
		dir = config.HistoryDir()
	}
	hist, err := runlog.New(dir)
	if err != nil {
		log.Warn("history unavailable", "error", err)
		return
	}

	entry := &runlog.Entry{
		Status:    status,
		Generator: generatorName(cfg),
		Output:    res.Output,
		Files:     make([]runlog.FileRecord, 0, len(res.Artifacts)),
		Summary: runlog.Summary{
			TotalFiles: res.Progress.Processed,
			TotalBytes: res.Progress.Bytes,
			Workers:    res.Workers,
			Elapsed:    res.Progress.Elapsed,
		},
	}
	if buildErr != nil {
		entry.Error = buildErr.Error()
	}
	for _, a := range res.Artifacts {
		entry.Files = append(entry.Files, runlog.FileRecord{Name: a.Name, Kind: a.Kind, Size: a.Size})
	}

	if err := hist.Record(entry); err != nil {
		log.Warn("recording history failed", "error", err)
		return
	}
	res.HistoryID = entry.ID
}

func generatorName(cfg *config.Config) string {
	if cfg.Generator == "" {
		return config.DefaultGenerator
	}
	return cfg.Generator
}

func outputDir(cfg *config.Config) string {
	if cfg.Output == "" {
		return config.DefaultOutput
	}
	return cfg.Output
}

// inDir runs fn with dir as the working directory and restores the
// previous one afterwards.
func inDir(dir string, fn func() error) (err error) {
	prev, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("entering output directory: %w", err)
	}
	defer func() {
		if cerr := os.Chdir(prev); cerr != nil && err == nil {
			err = fmt.Errorf("restoring working directory: %w", cerr)
		}
	}()
	return fn()
}
