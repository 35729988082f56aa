package generator

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// IndexJSON is the file the json generator writes.
const IndexJSON = "index.json"

// index is the document written by the json and yaml generators.
type index struct {
	Title     string            `json:"title" yaml:"title"`
	Generated time.Time         `json:"generated" yaml:"generated"`
	Count     int               `json:"count" yaml:"count"`
	Artifacts []*types.Artifact `json:"artifacts" yaml:"artifacts"`
}

func newIndex(cfg Options, artifacts []*types.Artifact) index {
	return index{
		Title:     cfg.title(),
		Generated: time.Now().UTC().Truncate(time.Second),
		Count:     len(artifacts),
		Artifacts: artifacts,
	}
}

// JSONGenerator writes all artifacts to a single indented JSON index.
type JSONGenerator struct {
	cfg Options
}

// NewJSON creates a json generator.
func NewJSON(cfg Options) Generator {
	return &JSONGenerator{cfg: cfg}
}

// Generate writes index.json.
func (g *JSONGenerator) Generate(ctx context.Context, artifacts []*types.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFile(IndexJSON, func(f io.Writer) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(newIndex(g.cfg, artifacts))
	})
}

var _ Generator = (*JSONGenerator)(nil)
