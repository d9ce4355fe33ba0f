package approval

import (
	"context"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
)

// ListFilter narrows a List call. Zero values match everything.
type ListFilter struct {
	// State filters to actions currently in one state.
	State State

	// RuleID filters to actions produced by one rule.
	RuleID string
}

// Store persists actions and performs their state transitions. Transition
// is the at-most-once primitive: it must be an atomic compare-and-set keyed
// by action ID, and it must append the supplied audit entry in the same
// critical section or transaction as the state change.
type Store interface {
	// Create persists a new action and appends its Proposed audit entry
	// atomically. Fails if the ID already exists.
	Create(ctx context.Context, action *Action, entry *audit.Entry) error

	// Get returns the action with the given ID, or NotFoundError.
	Get(ctx context.Context, id string) (*Action, error)

	// List returns actions matching the filter, ordered by creation time.
	List(ctx context.Context, filter ListFilter) ([]*Action, error)

	// Transition atomically moves the action from `from` to `to` and appends
	// entry (a nil entry transitions without an audit write, used for the
	// unaudited Executing claim). If the action is not currently in `from`,
	// nothing changes and InvalidTransitionError (carrying the actual state)
	// is returned.
	Transition(ctx context.Context, id string, from, to State, entry *audit.Entry) (*Action, error)

	// Close releases the store's resources.
	Close() error
}
