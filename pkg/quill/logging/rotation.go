package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// MaxSize is the size in bytes a file may reach before rotating.
	// Zero uses the default.
	MaxSize int64

	// MaxAge removes backups older than this many days. Zero keeps them.
	MaxAge int

	// MaxBackups is the number of backups kept. Zero keeps all.
	MaxBackups int

	// Daily also rotates when the calendar day changes.
	Daily bool
}

// DefaultRotationConfig returns 10MiB files, five backups, thirty days and
// daily rotation.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 << 20,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// backupLayout is inserted between the file's stem and extension. It
// sorts lexically in time order.
const backupLayout = "20060102T150405.000000000"

// RotatingWriter is an append-only log file that moves itself aside to
// <stem>-<time><ext> when it grows too large or the day changes. Writes
// also take a sidecar flock so a watch session and a one-off build can
// share one file.
type RotatingWriter struct {
	path string
	cfg  RotationConfig
	lock *flock.Flock

	mu   sync.Mutex
	f    *os.File
	size int64
	day  string
}

// NewRotatingWriter opens path for appending, creating parent directories.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg, lock: flock.New(path + ".lock")}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

// Write appends p, rotating first when p would overflow the file or the
// day has changed. An empty file is never rotated.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, os.ErrClosed
	}

	if w.due(len(p)) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	if err := w.lock.Lock(); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	defer func() { _ = w.lock.Unlock() }()

	n, err := w.f.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	w.f = nil
	_ = w.lock.Close()
	return errors.Join(syncErr, closeErr)
}

func (w *RotatingWriter) due(n int) bool {
	if w.size == 0 {
		return false
	}
	if w.size+int64(n) > w.cfg.MaxSize {
		return true
	}
	return w.cfg.Daily && time.Now().Format(time.DateOnly) != w.day
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("inspecting log file: %w", err)
	}

	w.f = f
	w.size = info.Size()
	w.day = info.ModTime().Format(time.DateOnly)
	return nil
}

func (w *RotatingWriter) rotate() error {
	if err := w.f.Close(); err != nil {
		return err
	}
	w.f = nil

	ext := filepath.Ext(w.path)
	backup := strings.TrimSuffix(w.path, ext) + "-" + time.Now().Format(backupLayout) + ext
	if err := os.Rename(w.path, backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := w.open(); err != nil {
		return err
	}
	w.day = time.Now().Format(time.DateOnly)
	w.prune()
	return nil
}

// backups lists rotated files, newest first.
func (w *RotatingWriter) backups() []string {
	ext := filepath.Ext(w.path)
	matches, err := filepath.Glob(strings.TrimSuffix(w.path, ext) + "-*" + ext)
	if err != nil {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches
}

// prune removes backups beyond MaxBackups or older than MaxAge. Failures
// are ignored.
func (w *RotatingWriter) prune() {
	cutoff := time.Now().AddDate(0, 0, -w.cfg.MaxAge)
	for i, path := range w.backups() {
		if w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups {
			_ = os.Remove(path)
			continue
		}
		if w.cfg.MaxAge <= 0 {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
	}
}
