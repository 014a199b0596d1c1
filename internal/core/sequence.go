package core

import (
	"context"

	"github.com/omixflow/workbench/internal/store"
)

// ProfileIDSequence is the sequence name used for profile ids.
const ProfileIDSequence = "profileId"

// Sequence issues strictly increasing integer identifiers per named
// sequence. Increments are atomic; values are never reused.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

// storeSequence backs Sequence with the document store's atomic counter.
// The starting value comes from configuration, not a default baked in here.
type storeSequence struct {
	store store.Store
	start int64
}

// NewStoreSequence creates a Sequence that allocates from st, seeding new
// sequences at start.
func NewStoreSequence(st store.Store, start int64) Sequence {
	return &storeSequence{store: st, start: start}
}

func (s *storeSequence) Next(ctx context.Context, name string) (int64, error) {
	return s.store.NextSeq(ctx, name, s.start)
}
