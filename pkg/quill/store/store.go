// Package store persists parsed artifacts in a Badger database so they can
// be looked up by name after a build.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// ErrNotFound is returned when no artifact is stored under a name.
var ErrNotFound = errors.New("artifact not found")

// Store wraps Badger for artifact storage.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	return open(badger.DefaultOptions(path))
}

// OpenReadOnly opens an existing store without taking the write lock, so
// it can be read while no build holds it.
func OpenReadOnly(path string) (*Store, error) {
	return open(badger.DefaultOptions(path).WithReadOnly(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", opts.Dir, err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the artifact stored under name.
func (s *Store) Get(name string) (*types.Artifact, error) {
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(rec.Decode)
	})
	if err != nil {
		return nil, err
	}

	return &rec.Artifact, nil
}

// Put stores one artifact under its name.
func (s *Store) Put(a *types.Artifact) error {
	rec := Record{Version: FormatVersion, Artifact: *a}
	value, err := rec.Encode()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(a.Name), value)
	})
}

// PutBatch stores artifacts in a single write batch and records the build
// metadata.
func (s *Store) PutBatch(title string, artifacts []*types.Artifact) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, a := range artifacts {
		rec := Record{Version: FormatVersion, Artifact: *a}
		value, err := rec.Encode()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", a.Name, err)
		}
		if err := wb.Set(MakeKey(a.Name), value); err != nil {
			return err
		}
	}

	meta := Meta{Title: title, Built: time.Now(), Count: len(artifacts), Version: FormatVersion}
	value, err := meta.encode()
	if err != nil {
		return err
	}
	if err := wb.Set(metaKey(), value); err != nil {
		return err
	}

	return wb.Flush()
}

// Meta returns the metadata of the last batch written.
func (s *Store) Meta() (*Meta, error) {
	var m Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: build metadata", ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(m.decode)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns the stored artifact names with the given prefix, in key
// order. An empty prefix lists everything.
func (s *Store) List(prefix string) ([]string, error) {
	var names []string
	seek := MakeKey(prefix)
	all := MakeKey("")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(all); it.Next() {
			name := ParseKey(it.Item().Key())
			if !strings.HasPrefix(name, prefix) {
				break
			}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Delete removes the artifact stored under name.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(name))
	})
}

// Clear removes every stored artifact.
func (s *Store) Clear() error {
	prefix := MakeKey("")

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}
