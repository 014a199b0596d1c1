package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests. It applies the same JSON
// round trip and write-unit ceiling as the Postgres implementation so that
// service-level behavior (including CapacityExceeded paths) can be exercised
// without a database.
type Memory struct {
	mu            sync.RWMutex
	collections   map[string][]memoryDoc
	sequences     map[string]int64
	maxWriteBytes int

	// FailInsertAfter, when >= 0, makes InsertMany fail once that many
	// successful calls have happened. Used to test partial-failure paths.
	FailInsertAfter int
	insertCalls     int
}

type memoryDoc struct {
	id  string
	raw []byte
}

// NewMemory creates an empty in-memory store. maxWriteBytes <= 0 selects
// DefaultMaxWriteBytes.
func NewMemory(maxWriteBytes int) *Memory {
	if maxWriteBytes <= 0 {
		maxWriteBytes = DefaultMaxWriteBytes
	}
	return &Memory{
		collections:     make(map[string][]memoryDoc),
		sequences:       make(map[string]int64),
		maxWriteBytes:   maxWriteBytes,
		FailInsertAfter: -1,
	}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.collections[collection] {
		if d.id == id {
			return decodeDoc(d.raw)
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Put(ctx context.Context, collection, id string, doc Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if len(raw) > m.maxWriteBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrWriteTooLarge, len(raw), m.maxWriteBytes)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for i, d := range docs {
		if d.id == id {
			docs[i].raw = raw
			return nil
		}
	}
	m.collections[collection] = append(docs, memoryDoc{id: id, raw: raw})
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for i, d := range docs {
		if d.id == id {
			m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Find(ctx context.Context, collection string, filter Filter) ([]Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Doc
	for _, d := range m.collections[collection] {
		doc, err := decodeDoc(d.raw)
		if err != nil {
			return nil, err
		}
		if matchesFilter(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *Memory) InsertMany(ctx context.Context, collection string, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}

	encoded := make([]memoryDoc, len(docs))
	total := 0
	for i, doc := range docs {
		id, err := DocID(doc)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}
		encoded[i] = memoryDoc{id: id, raw: raw}
		total += len(raw)
	}
	if total > m.maxWriteBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrWriteTooLarge, total, m.maxWriteBytes)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInsertAfter >= 0 && m.insertCalls >= m.FailInsertAfter {
		return fmt.Errorf("insert %s: simulated write failure", collection)
	}
	m.insertCalls++

	m.collections[collection] = append(m.collections[collection], encoded...)
	return nil
}

func (m *Memory) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	kept := docs[:0:0]
	var removed int64
	for _, d := range docs {
		doc, err := decodeDoc(d.raw)
		if err != nil {
			return removed, err
		}
		if matchesFilter(doc, filter) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	m.collections[collection] = kept
	return removed, nil
}

func (m *Memory) NextSeq(ctx context.Context, name string, start int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sequences[name]
	if !ok {
		cur = start
	}
	cur++
	m.sequences[name] = cur
	return cur, nil
}

// Count returns the number of documents in a collection. Test helper.
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func decodeDoc(raw []byte) (Doc, error) {
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// matchesFilter mirrors jsonb containment for top-level scalar fields.
func matchesFilter(doc Doc, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

// scalarEqual compares values the way a JSON round trip would leave them:
// numbers become float64, so numeric comparisons normalize both sides.
func scalarEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
