package generator

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/quill/pkg/quill/types"
)

// IndexYAML is the file the yaml generator writes.
const IndexYAML = "index.yaml"

// YAMLGenerator writes all artifacts to a single YAML index.
type YAMLGenerator struct {
	cfg Options
}

// NewYAML creates a yaml generator.
func NewYAML(cfg Options) Generator {
	return &YAMLGenerator{cfg: cfg}
}

// Generate writes index.yaml.
func (g *YAMLGenerator) Generate(ctx context.Context, artifacts []*types.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFile(IndexYAML, func(f io.Writer) error {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(newIndex(g.cfg, artifacts)); err != nil {
			return err
		}
		return enc.Close()
	})
}

var _ Generator = (*YAMLGenerator)(nil)
