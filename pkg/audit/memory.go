package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLog is an in-memory audit log. Entries are copied on append and on
// query, so callers can never mutate recorded history through a retained
// pointer.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryLog creates an empty in-memory audit log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append records an entry.
func (l *MemoryLog) Append(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("memory", "append", err)
	}

	stored := cloneEntry(entry)
	if stored.EntryID == "" {
		stored.EntryID = NewEntryID()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, stored)
	l.mu.Unlock()

	// Reflect generated fields back so callers see the recorded identity.
	entry.EntryID = stored.EntryID
	entry.Timestamp = stored.Timestamp
	return nil
}

// Query returns matching entries ordered by timestamp then entry ID.
func (l *MemoryLog) Query(ctx context.Context, q *Query) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("memory", "query", err)
	}
	if q == nil {
		q = &Query{}
	}

	l.mu.RLock()
	var out []*Entry
	for _, e := range l.entries {
		if q.Match(e) {
			out = append(out, cloneEntry(e))
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].EntryID < out[j].EntryID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Close implements Log.
func (l *MemoryLog) Close() error {
	return nil
}

func cloneEntry(e *Entry) *Entry {
	dup := *e
	if e.EntityRefs != nil {
		dup.EntityRefs = append([]string(nil), e.EntityRefs...)
	}
	return &dup
}
