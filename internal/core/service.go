package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/omixflow/workbench/internal/store"
)

// Defaults for the transform replacement engine. Overridable through
// ServiceOptions; exposed as variables so tests can exercise small batches.
var (
	// DefaultBatchSize is the number of transform records per write unit.
	DefaultBatchSize = 500

	// DefaultBatchPause is the pause between batch writes, giving the
	// backing store room to breathe. Zero disables the pause.
	DefaultBatchPause = 50 * time.Millisecond
)

// ServiceOptions tunes the service. Zero values select the defaults above;
// a negative BatchPause disables the inter-batch pause entirely.
type ServiceOptions struct {
	BatchSize     int
	BatchPause    time.Duration
	SequenceStart int64 // first profile id is SequenceStart+1
}

// Service provides the core business logic for the migration workbench.
type Service struct {
	store      store.Store
	seq        Sequence
	batchSize  int
	batchPause time.Duration

	// now is stubbed in tests.
	now func() time.Time

	// locks serializes bulk replaces per (profileID, scanRunID) scope.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a Service backed by st. The profile-id sequence is
// seeded from opts.SequenceStart.
func NewService(st store.Store, opts ServiceOptions) *Service {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batchPause := opts.BatchPause
	if batchPause == 0 {
		batchPause = DefaultBatchPause
	} else if batchPause < 0 {
		batchPause = 0
	}

	return &Service{
		store:      st,
		seq:        NewStoreSequence(st, opts.SequenceStart),
		batchSize:  batchSize,
		batchPause: batchPause,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

// WithSequence replaces the sequence source, for callers that issue ids
// from an external counter service.
func (s *Service) WithSequence(seq Sequence) *Service {
	s.seq = seq
	return s
}

// replaceLock returns the mutex guarding bulk replaces for one
// (profileID, scanRunID) scope. Locks are never evicted; the scope space is
// bounded by the number of live scan runs.
func (s *Service) replaceLock(profileID int64, scanRunID string) *sync.Mutex {
	key := CanonicalID(profileID) + "|" + CanonicalID(scanRunID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// toDoc converts a typed value to a store document via a JSON round trip,
// attaching the given document id as "_id".
func toDoc(id string, v any) (store.Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc store.Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc["_id"] = id
	return doc, nil
}

// fromDoc converts a store document back to a typed value.
func fromDoc(doc store.Doc, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// putDoc marshals and upserts a typed value under the given id. A document
// that exceeds the store's write-unit ceiling classifies as
// ErrCapacityExceeded so the caller can tell the submission was too large.
func (s *Service) putDoc(ctx context.Context, collection, id string, v any) error {
	doc, err := toDoc(id, v)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, collection, id, doc); err != nil {
		if errors.Is(err, store.ErrWriteTooLarge) {
			return fmt.Errorf("save %s/%s: %w: %w", collection, id, ErrCapacityExceeded, err)
		}
		return fmt.Errorf("save %s/%s: %w", collection, id, err)
	}
	return nil
}
