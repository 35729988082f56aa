package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/quill/pkg/quill/logging"
)

// ErrEntryNotFound is returned by Get when no entry matches an ID.
var ErrEntryNotFound = errors.New("history entry not found")

// ErrAmbiguousID is returned by Get when an ID prefix matches several entries.
var ErrAmbiguousID = errors.New("ambiguous history ID")

var log = logging.Get("runlog")

// Log manages build entries in a directory, one JSON file per entry.
type Log struct {
	dir string
	mu  sync.Mutex
}

// New creates a Log backed by dir. The directory is created on first write.
func New(dir string) (*Log, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Log{dir: dir}, nil
}

// Dir returns the backing directory.
func (l *Log) Dir() string {
	return l.dir
}

// Record assigns an ID and timestamp to entry and persists it.
func (l *Log) Record(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Files == nil {
		entry.Files = []FileRecord{}
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}

	path := filepath.Join(l.dir, entry.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing history entry: %w", err)
	}

	log.Debug("recorded build", "id", entry.ID, "status", entry.Status, "files", entry.Summary.TotalFiles)
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
func (l *Log) List(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry whose ID equals or starts with id.
func (l *Log) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("history ID cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	var found *Entry
	for i := range entries {
		e := &entries[i]
		if e.ID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			if found != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			found = e
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return found, nil
}

// Cleanup removes entries recorded more than retentionDays ago and returns
// how many were removed.
func (l *Log) Cleanup(retentionDays int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := l.readAll()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, e.ID+".json")); err != nil {
			log.Warn("removing history entry", "id", e.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// readAll parses every entry file. Unparseable files are skipped.
func (l *Log) readAll() ([]Entry, error) {
	files, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(l.dir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			log.Debug("skipping unreadable history entry", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
