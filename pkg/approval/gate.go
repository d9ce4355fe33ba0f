package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
)

// SystemActor is the actor ID recorded for transitions the engine performs
// itself (execution begin/complete).
const SystemActor = "governance-engine"

// Result is the terminal outcome of an execution attempt, reported to
// CompleteExecution.
type Result struct {
	// Reference identifies the side effect for post-hoc dedup (e.g. the
	// created ticket key). Empty on failure.
	Reference string

	// Detail is a human-readable account of the outcome.
	Detail string

	// Err is the execution error, nil on success.
	Err error
}

// Gate enforces the propose -> approve/reject -> execute state machine.
// All action state changes in the system go through it, and every change
// lands in the audit log atomically with the transition.
type Gate struct {
	store  Store
	log    audit.Log
	logger *slog.Logger
}

// NewGate creates a gate over the given store and audit log. The store must
// append to the same log so transition entries pair atomically with state
// changes.
func NewGate(store Store, log audit.Log) *Gate {
	return &Gate{
		store:  store,
		log:    log,
		logger: slog.Default().With("component", "approval.gate"),
	}
}

// Propose persists an unsaved action in state Proposed, assigning its
// identity and timestamps at save time.
func (g *Gate) Propose(ctx context.Context, action *Action, actorID string) (*Action, error) {
	if action.State != "" && action.State != StateProposed {
		return nil, &InvalidTransitionError{ActionID: action.ID, From: action.State, To: StateProposed}
	}

	saved := cloneAction(action)
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	saved.State = StateProposed
	saved.CreatedAt = now
	saved.LastTransitionAt = now

	entry := &audit.Entry{
		ActorID:    actorID,
		ActionID:   saved.ID,
		EventType:  audit.EventProposed,
		AfterState: string(StateProposed),
		EntityRefs: []string{saved.TargetRef},
		Timestamp:  now,
		Detail:     fmt.Sprintf("proposed %s for %s (rule %s)", saved.Kind, saved.TargetRef, saved.RuleID),
	}
	if err := g.store.Create(ctx, saved, entry); err != nil {
		return nil, err
	}

	g.logger.Info("action proposed", "action_id", saved.ID, "kind", saved.Kind, "target", saved.TargetRef)
	return saved, nil
}

// Approve moves an action from Proposed to Approved. Valid only from
// Proposed; anything else fails with InvalidTransitionError and is recorded
// as a denied attempt without touching the action.
func (g *Gate) Approve(ctx context.Context, actionID, actorID string) (*Action, error) {
	entry := g.entry(actorID, actionID, audit.EventApproved, StateProposed, StateApproved,
		fmt.Sprintf("approved by %s", actorID))
	action, err := g.store.Transition(ctx, actionID, StateProposed, StateApproved, entry)
	if err != nil {
		g.recordDenied(ctx, actionID, actorID, audit.EventApproved, err)
		return nil, err
	}
	g.logger.Info("action approved", "action_id", actionID, "actor", actorID)
	return action, nil
}

// Reject moves an action from Proposed to the terminal Rejected state.
func (g *Gate) Reject(ctx context.Context, actionID, actorID, reason string) (*Action, error) {
	entry := g.entry(actorID, actionID, audit.EventRejected, StateProposed, StateRejected,
		fmt.Sprintf("rejected by %s: %s", actorID, reason))
	action, err := g.store.Transition(ctx, actionID, StateProposed, StateRejected, entry)
	if err != nil {
		g.recordDenied(ctx, actionID, actorID, audit.EventRejected, err)
		return nil, err
	}
	g.logger.Info("action rejected", "action_id", actionID, "actor", actorID, "reason", reason)
	return action, nil
}

// BeginExecution atomically claims the right to execute an approved action.
// Exactly one caller wins; concurrent callers lose the compare-and-set and
// get InvalidTransitionError. Losers must not retry blindly.
func (g *Gate) BeginExecution(ctx context.Context, actionID string) (*Action, error) {
	// The Executing claim itself is not audited: the terminal
	// Executed/ExecutionFailed entry is the single auditable fact per
	// attempt, which keeps exactly one terminal entry per action.
	action, err := g.store.Transition(ctx, actionID, StateApproved, StateExecuting, nil)
	if err != nil {
		return nil, err
	}
	g.logger.Info("execution started", "action_id", actionID)
	return action, nil
}

// CompleteExecution resolves an Executing action to its terminal state:
// Executed on success, Failed on error. Every execution attempt ends here;
// a timed-out or cancelled execution must still be resolved to Failed so no
// action is left non-terminal.
func (g *Gate) CompleteExecution(ctx context.Context, actionID string, result Result) (*Action, error) {
	to := StateExecuted
	eventType := audit.EventExecuted
	detail := result.Detail
	if result.Err != nil {
		to = StateFailed
		eventType = audit.EventExecutionFailed
		detail = result.Err.Error()
	} else if result.Reference != "" {
		detail = fmt.Sprintf("%s (ref %s)", detail, result.Reference)
	}

	entry := g.entry(SystemActor, actionID, eventType, StateExecuting, to, detail)
	action, err := g.store.Transition(ctx, actionID, StateExecuting, to, entry)
	if err != nil {
		return nil, err
	}
	g.logger.Info("execution completed", "action_id", actionID, "state", to, "detail", detail)
	return action, nil
}

// Get returns an action by ID.
func (g *Gate) Get(ctx context.Context, actionID string) (*Action, error) {
	return g.store.Get(ctx, actionID)
}

// List returns actions matching the filter.
func (g *Gate) List(ctx context.Context, filter ListFilter) ([]*Action, error) {
	return g.store.List(ctx, filter)
}

func (g *Gate) entry(actorID, actionID string, eventType audit.EventType, from, to State, detail string) *audit.Entry {
	return &audit.Entry{
		ActorID:     actorID,
		ActionID:    actionID,
		EventType:   eventType,
		BeforeState: string(from),
		AfterState:  string(to),
		Timestamp:   time.Now().UTC(),
		Detail:      detail,
	}
}

// recordDenied preserves the context of a refused human decision in the
// audit trail. The entry claims no state change: before and after both
// carry the action's actual state.
func (g *Gate) recordDenied(ctx context.Context, actionID, actorID string, attempted audit.EventType, cause error) {
	var invalid *InvalidTransitionError
	if !errors.As(cause, &invalid) {
		return
	}
	entry := &audit.Entry{
		ActorID:     actorID,
		ActionID:    actionID,
		EventType:   audit.EventTransitionDenied,
		BeforeState: string(invalid.From),
		AfterState:  string(invalid.From),
		Timestamp:   time.Now().UTC(),
		Detail:      fmt.Sprintf("%s denied: action is %s", attempted, invalid.From),
	}
	if err := g.log.Append(ctx, entry); err != nil {
		g.logger.Warn("failed to record denied transition", "action_id", actionID, "error", err)
	}
}
