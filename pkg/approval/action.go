// Package approval owns the remediation action state machine. Every
// side-effecting step in the governance loop is gated here: actions move
// Proposed -> {Approved|Rejected}, then Approved -> Executing ->
// {Executed|Failed}, and the Executing transition is an atomic
// compare-and-set so a side effect can never run twice.
package approval

import (
	"fmt"
	"time"
)

// State is an action's position in the approval lifecycle.
type State string

const (
	// StateProposed is the initial state of every action.
	StateProposed State = "proposed"

	// StateApproved means a human cleared the action for execution.
	StateApproved State = "approved"

	// StateRejected is terminal; the action will never execute.
	StateRejected State = "rejected"

	// StateExecuting means exactly one executor holds permission to perform
	// the side effect.
	StateExecuting State = "executing"

	// StateExecuted is terminal; the side effect completed.
	StateExecuted State = "executed"

	// StateFailed is terminal; the side effect did not complete. Retry is a
	// deliberate re-proposal, never implicit.
	StateFailed State = "failed"
)

// Kind identifies the connector an action executes through.
type Kind string

const (
	// KindCreateTicket creates a ticket in the configured tracker.
	KindCreateTicket Kind = "create_ticket"

	// KindUpdateDocument patches documents in the governed store.
	KindUpdateDocument Kind = "update_document"
)

// Action is a proposed or executed remediation step. The gate exclusively
// owns its state transitions.
type Action struct {
	// ID uniquely identifies the action.
	ID string `json:"id"`

	// Kind selects the executor.
	Kind Kind `json:"kind"`

	// RuleID is the rule whose finding produced this action.
	RuleID string `json:"rule_id"`

	// TargetRef is the primary entity the action remediates.
	TargetRef string `json:"target_ref"`

	// Payload carries connector-specific parameters.
	Payload map[string]any `json:"payload,omitempty"`

	// State is the current lifecycle state.
	State State `json:"state"`

	// CreatedAt and LastTransitionAt track the lifecycle timeline.
	CreatedAt        time.Time `json:"created_at"`
	LastTransitionAt time.Time `json:"last_transition_at"`
}

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateExecuted || s == StateFailed
}

// CanTransition reports whether from -> to is a legal state machine edge.
func CanTransition(from, to State) bool {
	switch from {
	case StateProposed:
		return to == StateApproved || to == StateRejected
	case StateApproved:
		return to == StateExecuting
	case StateExecuting:
		return to == StateExecuted || to == StateFailed
	default:
		return false
	}
}

// InvalidTransitionError signals a state machine misuse: the action was not
// in the state the caller required. It is always surfaced, never silently
// ignored, since it indicates either a workflow bug or a lost race.
type InvalidTransitionError struct {
	ActionID string
	From     State // the action's actual state at the time of the call
	To       State // the state the caller tried to reach
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for action %s: %s -> %s", e.ActionID, e.From, e.To)
}

// NotFoundError indicates the action ID is unknown to the store.
type NotFoundError struct {
	ActionID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("action %s not found", e.ActionID)
}

func cloneAction(a *Action) *Action {
	dup := *a
	if a.Payload != nil {
		dup.Payload = make(map[string]any, len(a.Payload))
		for k, v := range a.Payload {
			dup.Payload[k] = v
		}
	}
	return &dup
}
