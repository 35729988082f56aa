package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/quill/pkg/quill/build"
)

func update(t *testing.T, m ProgressModel, msg tea.Msg) (ProgressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(ProgressModel)
	require.True(t, ok)
	return pm, cmd
}

func TestProgressModel_Progress(t *testing.T) {
	t.Parallel()

	m := NewProgressModel("Building docs", nil)
	m, _ = update(t, m, ProgressMsg{Total: 2000, Processed: 1500, Bytes: 2048, CurrentPath: "src/guide.md"})

	view := m.View()
	assert.Contains(t, view, "Building docs")
	assert.Contains(t, view, "1,500 / 2,000 files")
	assert.Contains(t, view, "2.0 KiB read")
	assert.Contains(t, view, "src/guide.md")
	assert.False(t, m.Done())
}

func TestProgressModel_Done(t *testing.T) {
	t.Parallel()

	m := NewProgressModel("Building", nil)
	m, cmd := update(t, m, DoneMsg{Result: &build.Result{}})
	assert.True(t, m.Done())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Build complete")

	m, _ = update(t, NewProgressModel("Building", nil), DoneMsg{Err: errors.New("boom")})
	assert.Contains(t, m.View(), "Build failed: boom")
}

func TestProgressModel_CancelKey(t *testing.T) {
	t.Parallel()

	cancelled := false
	m := NewProgressModel("Building", func() { cancelled = true })
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, cancelled)
}

func TestProgressModel_WindowSize(t *testing.T) {
	t.Parallel()

	m, _ := update(t, NewProgressModel("Building", nil), tea.WindowSizeMsg{Width: 50, Height: 10})
	assert.Equal(t, 50, m.width)
	assert.Equal(t, 46, m.bar.Width)
}

func TestTruncatePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncatePath("short", 20))
	assert.Equal(t, "…e/file.md", truncatePath("docs/reference/file.md", 10))
	assert.Equal(t, "abc", truncatePath("abc", 2), "tiny widths are ignored")
}
