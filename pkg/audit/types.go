// Package audit provides the append-only audit trail for governance events.
// Every Detect/Propose/Approve/Reject/Execute transition is recorded as an
// immutable entry; the log exposes no update or delete surface.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a governance event.
type EventType string

const (
	// EventDetected records a detection sweep observing violations.
	EventDetected EventType = "detected"

	// EventProposed records a remediation action entering the gate.
	EventProposed EventType = "proposed"

	// EventApproved records a human approval.
	EventApproved EventType = "approved"

	// EventRejected records a human rejection.
	EventRejected EventType = "rejected"

	// EventExecuted records a successfully completed remediation.
	EventExecuted EventType = "executed"

	// EventExecutionFailed records a remediation that failed to complete.
	EventExecutionFailed EventType = "execution_failed"

	// EventTransitionDenied records an attempted state transition the gate
	// refused. The action's state is unchanged; BeforeState equals
	// AfterState.
	EventTransitionDenied EventType = "transition_denied"
)

// Entry is one immutable governance event. Entries are ordered by Timestamp
// with ties broken by EntryID; entry IDs are UUIDv7 so they order
// monotonically across engine instances without a central sequence.
type Entry struct {
	// EntryID uniquely identifies this entry.
	EntryID string `json:"entry_id"`

	// ActorID identifies who triggered the event (a user for approvals, a
	// system identity for sweeps and executions).
	ActorID string `json:"actor_id"`

	// ActionID is the affected action, empty for pure detections.
	ActionID string `json:"action_id,omitempty"`

	// EventType classifies the event.
	EventType EventType `json:"event_type"`

	// BeforeState and AfterState capture the action state around the event.
	BeforeState string `json:"before_state,omitempty"`
	AfterState  string `json:"after_state,omitempty"`

	// EntityRefs lists the entities the event concerns.
	EntityRefs []string `json:"entity_refs,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Detail is a human-readable account of the event.
	Detail string `json:"detail,omitempty"`
}

// NewEntryID returns a fresh monotonically orderable entry ID.
func NewEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to v4
		// rather than dropping the entry.
		return uuid.NewString()
	}
	return id.String()
}

// Query defines filter parameters for reading the audit trail.
type Query struct {
	// ActionID filters to entries for one action.
	ActionID string

	// EntityRef filters to entries mentioning one entity.
	EntityRef string

	// EventType filters to one event type.
	EventType EventType

	// StartTime / EndTime bound the time range (inclusive).
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the number of entries returned. Zero means no limit.
	Limit int
}

// Log is the append-only audit store. Append either writes the whole entry
// or fails; existing entries are never updated or removed.
type Log interface {
	// Append records an entry. An empty EntryID or zero Timestamp is filled
	// in at append time.
	Append(ctx context.Context, entry *Entry) error

	// Query returns entries matching the filter, ordered by timestamp
	// ascending then entry ID ascending.
	Query(ctx context.Context, q *Query) ([]*Entry, error)

	// Close releases any resources held by the log.
	Close() error
}

// Match reports whether an entry satisfies the query filter. Shared by log
// implementations.
func (q *Query) Match(e *Entry) bool {
	if q.ActionID != "" && e.ActionID != q.ActionID {
		return false
	}
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	if q.EntityRef != "" {
		found := false
		for _, ref := range e.EntityRefs {
			if ref == q.EntityRef {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	return true
}
