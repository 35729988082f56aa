package store

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// FormatVersion is incremented when the record layout changes.
const FormatVersion = 1

// KeySeparator separates the key namespace from the artifact name.
const KeySeparator = '\x00'

const (
	artifactNS = "artifact"
	metaNS     = "meta"
)

// Record is one stored artifact.
type Record struct {
	Version  int
	Artifact types.Artifact
}

// Encode serializes the record using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into the record.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// Meta describes the build that last wrote the store.
type Meta struct {
	Title   string
	Built   time.Time
	Count   int
	Version int
}

func (m *Meta) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Meta) decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(m)
}

// MakeKey returns the key for an artifact name.
// Format: artifact\x00<name>
func MakeKey(name string) []byte {
	return []byte(artifactNS + string(KeySeparator) + name)
}

// ParseKey extracts the artifact name from a key.
func ParseKey(key []byte) string {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key)
	}
	return string(key[idx+1:])
}

func metaKey() []byte {
	return []byte(metaNS + string(KeySeparator))
}
