// Package watch triggers rebuilds when files under the build roots change.
//
// Directories are registered recursively with fsnotify. Events are
// collected until the tree has been quiet for the debounce interval, then
// the rebuild callback runs once with every path that changed.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/quill/pkg/quill/logging"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

var log = logging.Get("watch")

// RebuildFunc is called with the sorted absolute paths that changed.
type RebuildFunc func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must be quiet before a rebuild.
	Debounce time.Duration

	// Ignore reports whether an absolute path is never watched nor
	// reported. Ignored directories are not descended into.
	Ignore func(path string) bool
}

// Validate applies defaults.
func (o *Options) Validate() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Ignore == nil {
		o.Ignore = func(string) bool { return false }
	}
}

// Watcher watches build roots for changes.
type Watcher struct {
	fsw  *fsnotify.Watcher
	opts Options

	mu     sync.Mutex
	dirs   map[string]bool
	roots  []string
	files  map[string]bool
	closed bool
}

// New creates a Watcher.
func New(opts Options) (*Watcher, error) {
	opts.Validate()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsw:   fsw,
		opts:  opts,
		dirs:  make(map[string]bool),
		files: make(map[string]bool),
	}, nil
}

// Watch adds root. A directory is watched recursively; a file is watched
// through its parent directory and only its own events are reported.
// Symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		w.mu.Lock()
		w.files[abs] = true
		w.mu.Unlock()
		return w.addWatch(filepath.Dir(abs))
	}

	w.mu.Lock()
	w.roots = append(w.roots, abs)
	w.mu.Unlock()

	return w.addTree(abs)
}

// addTree registers dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	if err := w.addWatch(dir); err != nil {
		return err
	}

	conf := fastwalk.Config{Follow: false}

	return fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path == dir {
			return nil
		}
		if w.opts.Ignore(path) {
			return filepath.SkipDir
		}
		if err := w.addWatch(path); err != nil {
			log.Warn("failed to add watch", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) addWatch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// removeTree drops the watches on dir and below it.
func (w *Watcher) removeTree(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path := range w.dirs {
		if path == dir || isSubPath(path, dir) {
			_ = w.fsw.Remove(path)
			delete(w.dirs, path)
		}
	}
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// relevant reports whether an event path belongs to a watched root.
func (w *Watcher) relevant(path string) bool {
	if w.opts.Ignore(path) {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return true
	}
	for _, root := range w.roots {
		if path == root || isSubPath(path, root) {
			return true
		}
	}
	return false
}

// handle updates the watch set for ev and reports whether it should
// trigger a rebuild.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if !w.relevant(ev.Name) {
		return false
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				log.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.removeTree(ev.Name)
	}

	return true
}

// Run processes events until ctx is done, calling rebuild once per quiet
// period. A failing rebuild is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(ev) {
				continue
			}
			log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)

			if err := rebuild(ctx, changed); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("rebuild failed", "changed", len(changed), "error", err)
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.dirs = make(map[string]bool)
	return w.fsw.Close()
}

// isSubPath reports whether path is strictly below parent.
func isSubPath(path, parent string) bool {
	return strings.HasPrefix(path, parent+string(filepath.Separator))
}
