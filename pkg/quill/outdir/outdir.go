// Package outdir manages the output directory of a build: validating it
// before a run, recording the run's start time in a marker file after a
// successful run, and guarding it against concurrent builds.
package outdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/jamesainslie/quill/pkg/quill/logging"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

// MarkerName is the file inside an output directory that records when the
// last successful build started.
const MarkerName = "created.quill"

// LockName is the advisory lock file held while a build writes into the
// output directory.
const LockName = ".quill.lock"

var (
	// ErrConflictingDirectory is returned when the output path exists but is
	// not a directory.
	ErrConflictingDirectory = errors.New("output path exists and is not a directory")

	// ErrUnrecognizedDirectory is returned when the output directory exists
	// without a readable marker, so it may hold unrelated content.
	ErrUnrecognizedDirectory = errors.New("output directory was not created by quill")

	// ErrDirectoryLocked is returned when another build holds the output
	// directory lock.
	ErrDirectoryLocked = errors.New("output directory is locked by another build")
)

var log = logging.Get("outdir")

// Prepare validates dir and returns the staleness cutoff for the build.
//
// A missing dir is created and yields no cutoff. An existing dir must carry
// a marker; its timestamp becomes the cutoff unless force is set.
func Prepare(dir string, force bool) (types.Cutoff, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.NoCutoff(), fmt.Errorf("creating output directory: %w", err)
		}
		log.Debug("created output directory", "dir", dir)
		return types.NoCutoff(), nil
	}
	if err != nil {
		return types.NoCutoff(), fmt.Errorf("inspecting output directory: %w", err)
	}

	if !info.IsDir() {
		return types.NoCutoff(), fmt.Errorf("%w: %s", ErrConflictingDirectory, dir)
	}

	at, err := ReadMarker(dir)
	if err != nil {
		return types.NoCutoff(), err
	}

	if force {
		log.Debug("forced full rebuild", "dir", dir, "marker", at.Format(time.RFC1123Z))
		return types.NoCutoff(), nil
	}

	return types.CutoffAt(at), nil
}

// ReadMarker returns the start time recorded in dir's marker file.
func ReadMarker(dir string) (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerName))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnrecognizedDirectory, dir)
	}

	at, err := parseTimestamp(strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: bad marker: %v", ErrUnrecognizedDirectory, dir, err)
	}

	return at, nil
}

func parseTimestamp(s string) (time.Time, error) {
	at, err := time.Parse(time.RFC1123Z, s)
	if err == nil {
		return at, nil
	}
	if alt, altErr := time.Parse(time.RFC1123, s); altErr == nil {
		return alt, nil
	}
	return time.Time{}, err
}

// Finalize records start in dir's marker file, replacing any previous
// content. The write goes through a temp file and rename.
func Finalize(dir string, start time.Time) error {
	markerPath := filepath.Join(dir, MarkerName)
	data := []byte(start.Format(time.RFC1123Z) + "\n")

	tmp, err := os.CreateTemp(dir, ".marker-*")
	if err != nil {
		return fmt.Errorf("creating temp marker: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp marker: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting marker permissions: %w", err)
	}

	if err := os.Rename(tmpPath, markerPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing marker: %w", err)
	}

	log.Debug("wrote marker", "dir", dir, "start", start.Format(time.RFC1123Z))
	return nil
}

// Lock is a held output directory lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock on dir without blocking. It fails with
// ErrDirectoryLocked if another process holds it.
func Acquire(dir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dir, LockName))

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking output directory %s: %w", dir, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryLocked, dir)
	}

	return &Lock{fl: fl}, nil
}

// Release unlocks the directory. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("releasing output directory lock: %w", err)
	}
	return nil
}

// IsBookkeeping reports whether name is one of the files quill keeps in an
// output directory for its own use.
func IsBookkeeping(name string) bool {
	return name == MarkerName || name == LockName || strings.HasPrefix(name, ".marker-")
}
