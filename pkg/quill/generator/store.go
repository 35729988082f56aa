package generator

import (
	"context"
	"fmt"

	"github.com/jamesainslie/quill/pkg/quill/store"
	"github.com/jamesainslie/quill/pkg/quill/types"
)

// StoreDir is the database directory the store generator writes.
const StoreDir = "store"

// StoreGenerator persists artifacts in a Badger database so they can be
// looked up by name later.
type StoreGenerator struct {
	cfg Options
}

// NewStore creates a store generator.
func NewStore(cfg Options) Generator {
	return &StoreGenerator{cfg: cfg}
}

// Generate replaces the stored artifacts with the current set. Artifacts
// from earlier builds that were not reparsed are kept.
func (g *StoreGenerator) Generate(ctx context.Context, artifacts []*types.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s, err := store.Open(StoreDir)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn("closing store", "error", cerr)
		}
	}()

	if err := s.PutBatch(g.cfg.title(), artifacts); err != nil {
		return fmt.Errorf("storing artifacts: %w", err)
	}

	log.Debug("artifacts stored", "count", len(artifacts), "dir", StoreDir)
	return nil
}

var _ Generator = (*StoreGenerator)(nil)
