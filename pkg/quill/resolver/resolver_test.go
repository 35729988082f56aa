package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// extProber recognizes files by extension.
type extProber []string

func (p extProber) CanParse(path string) bool {
	for _, ext := range p {
		if filepath.Ext(path) == ext {
			return true
		}
	}
	return false
}

var srcAndTxt = extProber{".src", ".txt"}

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content of "+filepath.Base(path)), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func TestResolve_CurrentDirectoryScenario(t *testing.T) {
	// No t.Parallel() - changes working directory
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "module.src"), time.Now())
	touch(t, filepath.Join(dir, "module.dat"), time.Now())
	t.Chdir(dir)

	files, err := Resolve([]string{"."}, true, Options{Probe: srcAndTxt})
	require.NoError(t, err)
	assert.Equal(t, []string{"module.src"}, files)
}

func TestResolve_ManifestPatternOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	touch(t, filepath.Join(lib, "b.src"), time.Time{})
	touch(t, filepath.Join(lib, "a.src"), time.Time{})
	touch(t, filepath.Join(lib, "sub", "z.txt"), time.Time{})
	touch(t, filepath.Join(lib, "sub", "y.txt"), time.Time{})
	touch(t, filepath.Join(lib, "ignored.txt"), time.Time{})
	require.NoError(t, os.WriteFile(filepath.Join(lib, ManifestName), []byte("*.src\nsub/*.txt\n"), 0o644))

	files, err := Resolve([]string{lib}, true, Options{Probe: srcAndTxt})
	require.NoError(t, err)

	want := []string{
		filepath.Join(lib, "a.src"),
		filepath.Join(lib, "b.src"),
		filepath.Join(lib, "sub", "y.txt"),
		filepath.Join(lib, "sub", "z.txt"),
	}
	assert.Equal(t, want, files)
}

func TestResolve_ManifestCommentInsensitive(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T, manifest string) []string {
		t.Helper()
		root := t.TempDir()
		touch(t, filepath.Join(root, "docs", "one.src"), time.Time{})
		touch(t, filepath.Join(root, "docs", "two.src"), time.Time{})
		touch(t, filepath.Join(root, "other.src"), time.Time{})
		require.NoError(t, os.WriteFile(filepath.Join(root, ManifestName), []byte(manifest), 0o644))

		files, err := Resolve([]string{root}, true, Options{Probe: srcAndTxt})
		require.NoError(t, err)

		rel := make([]string, len(files))
		for i, f := range files {
			r, err := filepath.Rel(root, f)
			require.NoError(t, err)
			rel[i] = filepath.ToSlash(r)
		}
		return rel
	}

	plain := build(t, "docs/*.src")
	commented := build(t, "docs/*.src  # include these")
	assert.Equal(t, []string{"docs/one.src", "docs/two.src"}, plain)
	assert.Equal(t, plain, commented)
}

func TestResolve_DirectoryEqualsChildren(t *testing.T) {
	t.Parallel()

	layouts := map[string][]string{
		"flat":   {"a.src", "b.dat", "c.txt"},
		"nested": {"a.src", "x/b.src", "x/y/c.txt", "x/y/d.bin"},
		"vcs":    {"keep.src", ".git/objects.src", "CVS/entries.txt"},
		"empty":  {},
	}

	for name, layout := range layouts {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			for _, rel := range layout {
				touch(t, filepath.Join(root, filepath.FromSlash(rel)), time.Time{})
			}
			opts := Options{Probe: srcAndTxt, Cutoff: types.CutoffAt(time.Now().Add(-time.Hour))}

			viaDir, err := Resolve([]string{root}, false, opts)
			require.NoError(t, err)

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			var children []string
			for _, e := range entries {
				children = append(children, filepath.Join(root, e.Name()))
			}
			viaChildren, err := Resolve(children, false, opts)
			require.NoError(t, err)

			assert.Equal(t, viaChildren, viaDir)
		})
	}
}

func TestResolve_Cutoff(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cutoff := time.Now().Add(-time.Hour)
	oldFile := filepath.Join(root, "old.src")
	newFile := filepath.Join(root, "new.src")
	touch(t, oldFile, cutoff.Add(-time.Minute))
	touch(t, newFile, cutoff.Add(time.Minute))

	opts := Options{Probe: srcAndTxt, Cutoff: types.CutoffAt(cutoff)}

	t.Run("stale files under a directory are skipped", func(t *testing.T) {
		t.Parallel()
		files, err := Resolve([]string{root}, true, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{newFile}, files)
	})

	t.Run("stale top-level file is kept", func(t *testing.T) {
		t.Parallel()
		files, err := Resolve([]string{oldFile}, true, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{oldFile}, files)
	})

	t.Run("stale file is skipped when not forced", func(t *testing.T) {
		t.Parallel()
		files, err := Resolve([]string{oldFile}, false, opts)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("no cutoff keeps everything", func(t *testing.T) {
		t.Parallel()
		files, err := Resolve([]string{root}, true, Options{Probe: srcAndTxt})
		require.NoError(t, err)
		assert.Equal(t, []string{newFile, oldFile}, files)
	})
}

func TestResolve_ForceDocTopLevelOnly(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dat := filepath.Join(root, "data.dat")
	touch(t, dat, time.Time{})

	files, err := Resolve([]string{dat}, true, Options{Probe: srcAndTxt})
	require.NoError(t, err)
	assert.Equal(t, []string{dat}, files, "unrecognized kinds are kept when named explicitly")

	files, err = Resolve([]string{root}, true, Options{Probe: srcAndTxt})
	require.NoError(t, err)
	assert.Empty(t, files, "directory listings only pick up recognized kinds")
}

func TestResolve_Exclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.src"), time.Time{})
	touch(t, filepath.Join(root, "a.tmp.src"), time.Time{})
	touch(t, filepath.Join(root, "skip", "b.src"), time.Time{})

	exclude, err := CompileExclude([]string{"*.tmp.src", "skip"})
	require.NoError(t, err)

	files, err := Resolve([]string{root}, true, Options{Probe: srcAndTxt, Exclude: exclude})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.src")}, files)
}

func TestResolve_MissingPathSkipped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files, err := Resolve([]string{filepath.Join(root, "gone.src")}, true, Options{Probe: srcAndTxt})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve_DuplicatesKept(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.src"), time.Time{})
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestName), []byte("*.src a.src"), 0o644))

	files, err := Resolve([]string{root}, true, Options{Probe: srcAndTxt})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.src"), filepath.Join(root, "a.src")}, files)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "*.src", []string{"*.src"}},
		{"comment stripped", "docs/*.src  # include these", []string{"docs/*.src"}},
		{"whole line comment", "# nothing\n*.md", []string{"*.md"}},
		{"several per line", "a.txt b.txt\n\tc.txt", []string{"a.txt", "b.txt", "c.txt"}},
		{"empty", "\n\n# only comments\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseManifest(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobMatcher(t *testing.T) {
	t.Parallel()

	m, err := CompileExclude([]string{"*.bak", "build/**", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"*.bak", "build/**"}, m.Patterns())

	assert.True(t, m.Match("notes.bak"))
	assert.True(t, m.Match("deep/dir/notes.bak"))
	assert.True(t, m.Match("build/out/x.md"))
	assert.False(t, m.Match("src/main.go"))

	var none *GlobMatcher
	assert.False(t, none.Match("anything"))

	_, err = CompileExclude([]string{"[unclosed"})
	assert.Error(t, err)
}
