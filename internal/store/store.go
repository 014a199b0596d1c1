// Package store provides a document-oriented persistence layer.
//
// Collections hold schemaless JSON documents addressed by string id. Every
// write unit (a single Put or InsertMany call) is subject to a size ceiling,
// mirroring the per-document limit of document databases; callers that need
// to persist large sets must split them into multiple write units.
package store

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxWriteBytes is the default per-write-unit size ceiling (16 MiB).
const DefaultMaxWriteBytes = 16 * 1024 * 1024

// ErrNotFound is returned when a document id does not exist in a collection.
var ErrNotFound = errors.New("store: document not found")

// ErrWriteTooLarge is returned when a single write unit exceeds the
// configured size ceiling. Callers should reduce the write size (smaller
// batches) rather than treat this as a fatal storage failure.
var ErrWriteTooLarge = errors.New("store: write unit exceeds size ceiling")

// Doc is a schemaless document. Values survive a JSON round trip, so nested
// values decode as map[string]any, []any, string, float64, bool, or nil.
type Doc map[string]any

// Filter selects documents whose top-level fields equal the given values.
// An empty filter matches every document in the collection.
type Filter map[string]any

// Store is the durable document store consumed by the core service.
// Implementations must make NextSeq atomic and strictly increasing.
type Store interface {
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Doc, error)

	// Put upserts a whole document under the given id.
	Put(ctx context.Context, collection, id string, doc Doc) error

	// Delete removes a document by id. Deleting a missing id is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Find returns all documents matching the filter, in insertion order.
	Find(ctx context.Context, collection string, filter Filter) ([]Doc, error)

	// InsertMany appends documents as one write unit. The docs slice is
	// keyed by the "_id" field of each document; documents without an
	// "_id" are rejected. The whole unit is checked against the size
	// ceiling before any document is written.
	InsertMany(ctx context.Context, collection string, docs []Doc) error

	// DeleteMany removes all documents matching the filter and returns
	// the number removed. Zero removals is success.
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)

	// NextSeq atomically increments and returns the named sequence.
	// A sequence that does not exist yet is created at start and the
	// first returned value is start+1.
	NextSeq(ctx context.Context, name string, start int64) (int64, error)
}

// DocID extracts the "_id" field of a document.
func DocID(doc Doc) (string, error) {
	v, ok := doc["_id"]
	if !ok {
		return "", fmt.Errorf("store: document missing _id")
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("store: document _id must be a non-empty string, got %T", v)
	}
	return id, nil
}
