package datasource

import (
	"context"
	"sync"
)

// Memory is an in-memory adapter backend. It keeps insertion order per
// collection, which makes evaluations deterministic, and is the default
// backend for tests and demos.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Document),
	}
}

// Insert appends documents to a collection. Implements Seeder.
func (m *Memory) Insert(_ context.Context, collection string, docs ...Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		m.collections[collection] = append(m.collections[collection], project(doc, nil))
	}
	return nil
}

// Query returns matching documents in insertion order.
func (m *Memory) Query(ctx context.Context, collection string, filter Filter, projection []string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewUnavailableError("memory", "query", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			out = append(out, project(doc, projection))
		}
	}
	return out, nil
}

// Count returns the number of matching documents.
func (m *Memory) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, NewUnavailableError("memory", "count", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

// Update applies patch to every matching document.
func (m *Memory) Update(ctx context.Context, collection string, filter Filter, patch map[string]any) (*UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewUnavailableError("memory", "update", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched int64
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			matched++
			for k, v := range patch {
				doc[k] = v
			}
		}
	}
	return &UpdateResult{MatchedCount: matched}, nil
}

// Close implements Adapter. The memory backend holds no external resources.
func (m *Memory) Close() error {
	return nil
}
