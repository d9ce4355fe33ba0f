package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
)

// MemoryStore is an in-memory action store. The mutex covers both the state
// change and the audit append, which gives Transition its atomicity.
type MemoryStore struct {
	mu      sync.Mutex
	actions map[string]*Action
	log     audit.Log
}

// NewMemoryStore creates an in-memory store appending to the given audit log.
func NewMemoryStore(log audit.Log) *MemoryStore {
	return &MemoryStore{
		actions: make(map[string]*Action),
		log:     log,
	}
}

// Create persists a new action with its Proposed audit entry.
func (s *MemoryStore) Create(ctx context.Context, action *Action, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actions[action.ID]; exists {
		return fmt.Errorf("action %s already exists", action.ID)
	}
	if err := s.log.Append(ctx, entry); err != nil {
		return err
	}
	s.actions[action.ID] = cloneAction(action)
	return nil
}

// Get returns the action with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[id]
	if !ok {
		return nil, &NotFoundError{ActionID: id}
	}
	return cloneAction(action), nil
}

// List returns actions matching the filter ordered by creation time, with
// ID as the tie-break so the order is stable.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Action
	for _, action := range s.actions {
		if filter.State != "" && action.State != filter.State {
			continue
		}
		if filter.RuleID != "" && action.RuleID != filter.RuleID {
			continue
		}
		out = append(out, cloneAction(action))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Transition performs the compare-and-set transition and audit append under
// one lock acquisition.
func (s *MemoryStore) Transition(ctx context.Context, id string, from, to State, entry *audit.Entry) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[id]
	if !ok {
		return nil, &NotFoundError{ActionID: id}
	}
	if action.State != from || !CanTransition(from, to) {
		return nil, &InvalidTransitionError{ActionID: id, From: action.State, To: to}
	}
	now := time.Now().UTC()
	if entry != nil {
		if err := s.log.Append(ctx, entry); err != nil {
			return nil, err
		}
		now = entry.Timestamp
	}
	action.State = to
	action.LastTransitionAt = now
	return cloneAction(action), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
