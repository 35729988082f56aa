package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/quill/pkg/quill/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    log.Level
		wantErr bool
	}{
		{"debug", log.DebugLevel, false},
		{"INFO", log.InfoLevel, false},
		{"", log.InfoLevel, false},
		{" warning ", log.WarnLevel, false},
		{"warn", log.WarnLevel, false},
		{"error", log.ErrorLevel, false},
		{"fatal", log.InfoLevel, true},
		{"loud", log.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := logging.ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, logging.ErrInvalidLevel)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// The tests below share the package registry and must not run in parallel.

func TestInit_InvalidLevelsChangeNothing(t *testing.T) {
	dir := t.TempDir()

	for name, cfg := range map[string]logging.Config{
		"level":     {Level: "loud", Path: filepath.Join(dir, "a.log")},
		"component": {Level: "info", Path: filepath.Join(dir, "b.log"), Components: map[string]string{"dispatch": "chatty"}},
		"console":   {Level: "info", Path: filepath.Join(dir, "c.log"), ConsoleLevel: "shout"},
	} {
		err := logging.Init(cfg)
		require.ErrorIs(t, err, logging.ErrInvalidLevel, name)
		assert.NoFileExists(t, cfg.Path, name)
	}
}

func TestGet_BeforeInitFollowsInit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "write.log")

	early := logging.Get("early")
	early.Info("discarded before init")

	require.NoError(t, logging.Init(logging.Config{Level: "debug", Path: logPath}))
	assert.Same(t, early, logging.Get("early"))

	logging.Get("resolver").Info("resolved files", "count", 3)
	early.Debug("early logger message")
	require.NoError(t, logging.Close())

	early.Error("discarded after close")

	content := readLog(t, logPath)
	assert.Contains(t, content, "resolved files")
	assert.Contains(t, content, "count=3")
	assert.Contains(t, content, "resolver")
	assert.Contains(t, content, "early logger message")
	assert.NotContains(t, content, "discarded")
}

func TestInit_ComponentLevels(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "levels.log")

	require.NoError(t, logging.Init(logging.Config{
		Level:      "warn",
		Path:       logPath,
		Components: map[string]string{"dispatch": "debug"},
	}))

	logging.Get("build").Info("build info hidden")
	logging.Get("build").Warn("build warn shown")
	logging.Get("dispatch").Debug("dispatch debug shown")
	require.NoError(t, logging.Close())

	content := readLog(t, logPath)
	assert.NotContains(t, content, "build info hidden")
	assert.Contains(t, content, "build warn shown")
	assert.Contains(t, content, "dispatch debug shown")
}

func TestInit_Reinit(t *testing.T) {
	dir := t.TempDir()
	first, second := filepath.Join(dir, "first.log"), filepath.Join(dir, "second.log")
	l := logging.Get("watch")

	require.NoError(t, logging.Init(logging.Config{Path: first}))
	l.Info("to first")
	require.NoError(t, logging.Init(logging.Config{Path: second}))
	l.Info("to second")
	require.NoError(t, logging.Close())
	require.NoError(t, logging.Close(), "closing twice is harmless")

	assert.Contains(t, readLog(t, first), "to first")
	assert.NotContains(t, readLog(t, first), "to second")
	assert.Contains(t, readLog(t, second), "to second")
}

func TestRotatingWriter_BySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "size.log")

	w, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 512, MaxBackups: 3})
	require.NoError(t, err)

	line := []byte(strings.Repeat("x", 50) + "\n")
	for range 40 {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	backups, err := filepath.Glob(filepath.Join(dir, "size-*.log"))
	require.NoError(t, err)
	assert.Len(t, backups, 3, "older backups pruned")

	for _, b := range append(backups, logPath) {
		info, err := os.Stat(b)
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(512), b)
		assert.Positive(t, info.Size(), b)
	}
}

func TestRotatingWriter_Append(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "nested", "append.log")
	for _, msg := range []string{"one\n", "two\n"} {
		w, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{})
		require.NoError(t, err)
		_, err = w.Write([]byte(msg))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	assert.Equal(t, "one\ntwo\n", readLog(t, logPath))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
