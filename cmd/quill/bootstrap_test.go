package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/quill/pkg/quill/config"
	"github.com/jamesainslie/quill/pkg/quill/logging"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name:     "default values",
			input:    config.RotationConfig{MaxSize: "10MiB", MaxAge: 30, MaxBackups: 5, Daily: true},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024, MaxAge: 30, MaxBackups: 5, Daily: true},
		},
		{
			name:     "decimal megabytes",
			input:    config.RotationConfig{MaxSize: "5MB", MaxAge: 7},
			expected: logging.RotationConfig{MaxSize: 5 * 1000 * 1000, MaxAge: 7},
		},
		{
			name:     "custom size in gibibytes",
			input:    config.RotationConfig{MaxSize: "1GiB", MaxAge: 7, MaxBackups: 3},
			expected: logging.RotationConfig{MaxSize: 1024 * 1024 * 1024, MaxAge: 7, MaxBackups: 3},
		},
		{
			name:     "empty max_size uses default",
			input:    config.RotationConfig{MaxAge: 14, MaxBackups: 2, Daily: true},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024, MaxAge: 14, MaxBackups: 2, Daily: true},
		},
		{
			name:     "invalid max_size uses default",
			input:    config.RotationConfig{MaxSize: "invalid", MaxAge: 21, MaxBackups: 4},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024, MaxAge: 21, MaxBackups: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseRotationConfig(tt.input))
		})
	}
}

func TestWatchIgnore(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Chdir(dir)

	ignore, err := watchIgnore(&config.Config{Output: "doc", Exclude: []string{"*.tmp", "vendor"}})
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(dir, "src", "guide.md"), false},
		{filepath.Join(dir, "doc"), true},
		{filepath.Join(dir, "doc", "index.html"), true},
		{filepath.Join(dir, "docs", "index.md"), false},
		{filepath.Join(dir, "src", "scratch.tmp"), true},
		{filepath.Join(dir, "vendor"), true},
		{filepath.Join(dir, ".git"), true},
		{filepath.Join(dir, "src", "created.quill"), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ignore(tt.path), tt.path)
	}

	_, err = watchIgnore(&config.Config{Exclude: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()

	got := envOverrides([]string{"PATH=/bin", "QUILL_OUTPUT=site", "HOME=/root", "QUILL_GENERATOR=json"})
	assert.Equal(t, []string{"QUILL_GENERATOR=json", "QUILL_OUTPUT=site"}, got)
}

func TestEditorCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{"fallback", nil, []string{"vi"}},
		{"editor", map[string]string{"EDITOR": "nano"}, []string{"nano"}},
		{"visual wins", map[string]string{"VISUAL": "code --wait", "EDITOR": "nano"}, []string{"code", "--wait"}},
		{"blank visual skipped", map[string]string{"VISUAL": "  ", "EDITOR": "hx"}, []string{"hx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := editorCommand(func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionBanner(t *testing.T) {
	t.Parallel()

	got := versionBanner("v1.2.0", "abc1234", "2025-01-02T15:04:05Z")
	want := fmt.Sprintf("quill v1.2.0 (abc1234, 2025-01-02) %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	assert.Equal(t, want, got)

	assert.Contains(t, versionBanner("v0.1.0", "none", "unknown"), "(none, unknown)")
}

func TestInitializeLogging(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	logPath := filepath.Join(dir, "quill.log")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: site\nlogging:\n  path: "+logPath+"\n"), 0o644))

	prev := cfgFile
	cfgFile = cfgPath
	t.Cleanup(func() {
		cfgFile = prev
		_ = logging.Close()
	})

	require.NoError(t, initializeLogging(nil, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, "site", cfg.Output)
	assert.Equal(t, logPath, cfg.Logging.Path)

	logging.Get("build").Info("hello")
	require.NoError(t, logging.Close())
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
