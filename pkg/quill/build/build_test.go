package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/quill/pkg/quill/config"
	"github.com/jamesainslie/quill/pkg/quill/generator"
	"github.com/jamesainslie/quill/pkg/quill/outdir"
	"github.com/jamesainslie/quill/pkg/quill/resolver"
	"github.com/jamesainslie/quill/pkg/quill/runlog"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

var past = time.Now().Add(-time.Hour)

// project lays out a small source tree in a fresh working directory and
// backdates every file so a later build sees it as stale.
func project(t *testing.T) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Chdir(dir)

	files := map[string]string{
		"src/README":        "Widget\nA tool.\n",
		"src/docs/guide.md": "# Guide\n\nHello.\n",
		"src/widget.go":     "// Package widget makes widgets.\npackage widget\n",
		"src/data.bin":      "\x00\x01",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		require.NoError(t, os.Chtimes(path, past, past))
	}
	return dir
}

func baseConfig() *config.Config {
	return &config.Config{
		Files:     []string{"src"},
		Output:    "doc",
		Generator: "json",
		Workers:   2,
		Quiet:     true,
	}
}

func names(artifacts []*types.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Name
	}
	return out
}

func TestRun_FreshBuild(t *testing.T) {
	dir := project(t)

	res, err := New(Options{}).Run(context.Background(), baseConfig())
	require.NoError(t, err)

	assert.False(t, res.NoNewerFiles)
	assert.False(t, res.Cutoff.IsSet())
	assert.Equal(t, filepath.Join(dir, "doc"), res.Output)
	assert.Equal(t, []string{"src/README", "src/docs/guide.md", "src/widget.go"}, names(res.Artifacts))
	assert.Equal(t, int64(3), res.Progress.Processed)
	assert.Equal(t, 2, res.Workers)

	assert.FileExists(t, filepath.Join(dir, "doc", generator.IndexJSON))
	marker, err := outdir.ReadMarker(filepath.Join(dir, "doc"))
	require.NoError(t, err)
	assert.Equal(t, res.Start.Unix(), marker.Unix())

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir, wd, "working directory is restored")
}

func TestRun_Incremental(t *testing.T) {
	dir := project(t)
	b := New(Options{})
	cfg := baseConfig()

	_, err := b.Run(context.Background(), cfg)
	require.NoError(t, err)

	index := filepath.Join(dir, "doc", generator.IndexJSON)
	require.NoError(t, os.Remove(index))
	marker, err := outdir.ReadMarker(filepath.Join(dir, "doc"))
	require.NoError(t, err)

	t.Run("nothing newer", func(t *testing.T) {
		res, err := b.Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.True(t, res.NoNewerFiles)
		assert.True(t, res.Cutoff.IsSet())
		assert.Empty(t, res.Artifacts)
		assert.NoFileExists(t, index, "no generation")

		again, err := outdir.ReadMarker(filepath.Join(dir, "doc"))
		require.NoError(t, err)
		assert.True(t, marker.Equal(again), "marker untouched")
	})

	t.Run("one newer file", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(dir, "src", "widget.go"), future, future))

		res, err := b.Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/widget.go"}, names(res.Artifacts))
		assert.FileExists(t, index)
	})

	t.Run("force rebuilds everything", func(t *testing.T) {
		forced := *cfg
		forced.Force = true

		res, err := b.Run(context.Background(), &forced)
		require.NoError(t, err)
		assert.False(t, res.Cutoff.IsSet())
		assert.Len(t, res.Artifacts, 3)
	})

	t.Run("explicit stale file is forced", func(t *testing.T) {
		single := *cfg
		single.Files = []string{filepath.Join("src", "README"), filepath.Join("src", "data.bin")}

		res, err := b.Run(context.Background(), &single)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/README", "src/data.bin"}, names(res.Artifacts))
	})
}

func TestRun_OutputDirectoryErrors(t *testing.T) {
	dir := project(t)

	t.Run("unrecognized", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "foreign"), 0o755))
		cfg := baseConfig()
		cfg.Output = "foreign"

		_, err := New(Options{}).Run(context.Background(), cfg)
		assert.ErrorIs(t, err, outdir.ErrUnrecognizedDirectory)
	})

	t.Run("conflicting", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "afile"), nil, 0o644))
		cfg := baseConfig()
		cfg.Output = "afile"

		_, err := New(Options{}).Run(context.Background(), cfg)
		assert.ErrorIs(t, err, outdir.ErrConflictingDirectory)
	})

	t.Run("locked", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Output = "locked"
		_, err := New(Options{}).Run(context.Background(), cfg)
		require.NoError(t, err)

		lock, err := outdir.Acquire(filepath.Join(dir, "locked"))
		require.NoError(t, err)
		defer lock.Release()

		_, err = New(Options{}).Run(context.Background(), cfg)
		assert.ErrorIs(t, err, outdir.ErrDirectoryLocked)
	})
}

func TestRun_UnknownGenerator(t *testing.T) {
	dir := project(t)
	cfg := baseConfig()
	cfg.Generator = "pdf"

	_, err := New(Options{}).Run(context.Background(), cfg)
	require.ErrorIs(t, err, generator.ErrUnknownGenerator)
	assert.NoFileExists(t, filepath.Join(dir, "doc", outdir.MarkerName))
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, []*types.Artifact) error {
	return errors.New("disk full")
}

func TestRun_GeneratorFailure(t *testing.T) {
	dir := project(t)

	gens := generator.NewRegistry()
	gens.Register("broken", func(generator.Options) generator.Generator { return failingGenerator{} })

	cfg := baseConfig()
	cfg.Generator = "broken"

	_, err := New(Options{Generators: gens}).Run(context.Background(), cfg)
	require.ErrorIs(t, err, ErrGeneratorFailure)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoFileExists(t, filepath.Join(dir, "doc", outdir.MarkerName), "failed builds leave no marker")

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir, wd)
}

type recordingGenerator struct {
	wd    *string
	names *[]string
}

func (g recordingGenerator) Generate(_ context.Context, artifacts []*types.Artifact) error {
	wd, err := os.Getwd()
	*g.wd = wd
	*g.names = names(artifacts)
	return err
}

func TestRun_GeneratorRunsInOutputDirectory(t *testing.T) {
	dir := project(t)

	var wd string
	var got []string
	gens := generator.NewRegistry()
	gens.Register("rec", func(generator.Options) generator.Generator {
		return recordingGenerator{wd: &wd, names: &got}
	})

	cfg := baseConfig()
	cfg.Generator = "rec"

	_, err := New(Options{Generators: gens}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc"), wd)
	assert.Equal(t, []string{"src/README", "src/docs/guide.md", "src/widget.go"}, got, "sorted by path")
}

func TestRun_SingleFile(t *testing.T) {
	dir := project(t)
	cfg := baseConfig()
	cfg.SingleFile = true

	res, err := New(Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, res.Output)
	assert.FileExists(t, filepath.Join(dir, generator.IndexJSON))
	assert.NoDirExists(t, filepath.Join(dir, "doc"))
}

func TestRun_ExcludesOutputDirectory(t *testing.T) {
	dir := project(t)
	cfg := baseConfig()
	cfg.Files = []string{"."}
	cfg.Generator = "yaml"
	cfg.Exclude = []string{"*.go"}

	_, err := New(Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "doc", generator.IndexYAML))

	cfg.Force = true
	res, err := New(Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/README", "src/docs/guide.md"}, names(res.Artifacts))
}

type diagrammer struct{ calls int }

func (d *diagrammer) Diagram(_ context.Context, artifacts []*types.Artifact) error {
	d.calls++
	if len(artifacts) == 0 {
		return errors.New("no artifacts")
	}
	return nil
}

func TestRun_Diagrammer(t *testing.T) {
	project(t)
	d := &diagrammer{}

	_, err := New(Options{Diagrammer: d}).Run(context.Background(), baseConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, d.calls)
}

func TestRun_HistoryAndMetrics(t *testing.T) {
	dir := project(t)
	cfg := baseConfig()
	cfg.History = config.HistoryConfig{Enabled: true, Path: filepath.Join(dir, "history")}
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics", "quill.prom")

	res, err := New(Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.HistoryID)

	hist, err := runlog.New(cfg.History.Path)
	require.NoError(t, err)
	entry, err := hist.Get(res.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, runlog.StatusOK, entry.Status)
	assert.Len(t, entry.Files, 3)
	assert.Equal(t, int64(3), entry.Summary.TotalFiles)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "quill_files_parsed 3")

	res, err = New(Options{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	entry, err = hist.Get(res.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, runlog.StatusUpToDate, entry.Status)

	cfg.Generator = "nope"
	cfg.Force = true
	_, err = New(Options{}).Run(context.Background(), cfg)
	require.Error(t, err)
	entries, err := hist.List(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, runlog.StatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Error, "nope")
}

func TestRun_Summary(t *testing.T) {
	project(t)

	var out bytes.Buffer
	cfg := baseConfig()
	cfg.Quiet = false
	_, err := New(Options{Out: &out}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Build summary")

	out.Reset()
	cfg.Quiet = true
	cfg.Force = true
	_, err = New(Options{Out: &out}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestRun_ParseFailureAborts(t *testing.T) {
	dir := project(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "broken.go"), []byte("package broken\nfunc {"), 0o644))

	_, err := New(Options{}).Run(context.Background(), baseConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.go")
	assert.NoFileExists(t, filepath.Join(dir, "doc", generator.IndexJSON))
}

func TestExcludeSet(t *testing.T) {
	dir := project(t)
	globs, err := resolver.CompileExclude([]string{"*.tmp"})
	require.NoError(t, err)

	e := &excludeSet{globs: globs, outDir: filepath.Join(dir, "doc")}
	assert.True(t, e.Match("doc"))
	assert.True(t, e.Match(filepath.Join("doc", "index.html")))
	assert.True(t, e.Match("x.tmp"))
	assert.False(t, e.Match("docs"))
	assert.False(t, e.Match(filepath.Join("src", "README")))
}
