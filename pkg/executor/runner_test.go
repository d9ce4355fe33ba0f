package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
)

// stubExecutor scripts one connector outcome.
type stubExecutor struct {
	readyErr error
	outcome  *Outcome
	execErr  error
	calls    int
	block    time.Duration
}

func (s *stubExecutor) Ready() error { return s.readyErr }

func (s *stubExecutor) Execute(ctx context.Context, _ *approval.Action) (*Outcome, error) {
	s.calls++
	if s.block > 0 {
		select {
		case <-time.After(s.block):
		case <-ctx.Done():
			return nil, &ExecutionError{Connector: "stub", Retryable: true, Cause: ctx.Err()}
		}
	}
	return s.outcome, s.execErr
}

func newRunnerFixture(t *testing.T, exec Executor) (*Runner, *approval.Gate, *audit.MemoryLog, *approval.Action) {
	t.Helper()
	log := audit.NewMemoryLog()
	gate := approval.NewGate(approval.NewMemoryStore(log), log)

	registry := NewRegistry()
	registry.Register(approval.KindCreateTicket, exec)
	runner := NewRunner(gate, registry, time.Second, nil)

	ctx := context.Background()
	action, err := gate.Propose(ctx, &approval.Action{
		Kind:      approval.KindCreateTicket,
		RuleID:    "detect_drift",
		TargetRef: "delta",
	}, "governance-engine")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := gate.Approve(ctx, action.ID, "alice"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	return runner, gate, log, action
}

func TestRunner_SuccessResolvesToExecuted(t *testing.T) {
	stub := &stubExecutor{outcome: &Outcome{Reference: "OPS-42", Detail: "ticket created"}}
	runner, gate, log, action := newRunnerFixture(t, stub)
	ctx := context.Background()

	outcome, err := runner.Run(ctx, action.ID)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Reference != "OPS-42" {
		t.Errorf("Expected reference OPS-42, got %s", outcome.Reference)
	}
	if stub.calls != 1 {
		t.Errorf("Expected 1 connector call, got %d", stub.calls)
	}

	got, err := gate.Get(ctx, action.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != approval.StateExecuted {
		t.Errorf("Expected executed, got %s", got.State)
	}

	entries, err := log.Query(ctx, &audit.Query{ActionID: action.ID, EventType: audit.EventExecuted})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 executed entry, got %d", len(entries))
	}
}

func TestRunner_FailureResolvesToFailed(t *testing.T) {
	stub := &stubExecutor{execErr: &ExecutionError{Connector: "stub", Retryable: false, Cause: errors.New("boom")}}
	runner, gate, log, action := newRunnerFixture(t, stub)
	ctx := context.Background()

	_, err := runner.Run(ctx, action.ID)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Expected ExecutionError, got %v", err)
	}

	got, err := gate.Get(ctx, action.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != approval.StateFailed {
		t.Errorf("Expected failed, got %s", got.State)
	}

	entries, err := log.Query(ctx, &audit.Query{ActionID: action.ID, EventType: audit.EventExecutionFailed})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 execution_failed entry, got %d", len(entries))
	}
}

func TestRunner_UnconfiguredConnectorLeavesActionApproved(t *testing.T) {
	stub := &stubExecutor{readyErr: &ConnectorUnconfiguredError{Connector: "ticket", Missing: []string{"credential"}}}
	runner, gate, log, action := newRunnerFixture(t, stub)
	ctx := context.Background()

	_, err := runner.Run(ctx, action.ID)
	var unconfigured *ConnectorUnconfiguredError
	if !errors.As(err, &unconfigured) {
		t.Fatalf("Expected ConnectorUnconfiguredError, got %v", err)
	}
	if stub.calls != 0 {
		t.Error("Expected no connector call")
	}

	// The action survives untouched and is executable once configured.
	got, err := gate.Get(ctx, action.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != approval.StateApproved {
		t.Errorf("Expected action to stay approved, got %s", got.State)
	}

	entries, err := log.Query(ctx, &audit.Query{ActionID: action.ID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for _, e := range entries {
		if e.EventType == audit.EventExecuted || e.EventType == audit.EventExecutionFailed {
			t.Errorf("Expected no terminal entry, found %s", e.EventType)
		}
	}
}

func TestRunner_TimeoutResolvesToFailed(t *testing.T) {
	stub := &stubExecutor{block: 5 * time.Second, outcome: &Outcome{Detail: "too late"}}
	log := audit.NewMemoryLog()
	gate := approval.NewGate(approval.NewMemoryStore(log), log)
	registry := NewRegistry()
	registry.Register(approval.KindCreateTicket, stub)
	runner := NewRunner(gate, registry, 50*time.Millisecond, nil)

	ctx := context.Background()
	action, err := gate.Propose(ctx, &approval.Action{Kind: approval.KindCreateTicket, RuleID: "detect_drift", TargetRef: "delta"}, "governance-engine")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := gate.Approve(ctx, action.ID, "alice"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if _, err := runner.Run(ctx, action.ID); err == nil {
		t.Fatal("Expected the timed-out run to fail")
	}

	// The attempt is resolved; the action is never left Executing.
	got, err := gate.Get(ctx, action.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != approval.StateFailed {
		t.Errorf("Expected failed after timeout, got %s", got.State)
	}
}

func TestRunner_SecondRunDenied(t *testing.T) {
	stub := &stubExecutor{outcome: &Outcome{Detail: "done"}}
	runner, _, _, action := newRunnerFixture(t, stub)
	ctx := context.Background()

	if _, err := runner.Run(ctx, action.ID); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	_, err := runner.Run(ctx, action.ID)
	var invalid *approval.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidTransitionError on re-run, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("Expected the connector to run exactly once, got %d calls", stub.calls)
	}
}

func TestRunner_UnknownActionKind(t *testing.T) {
	log := audit.NewMemoryLog()
	gate := approval.NewGate(approval.NewMemoryStore(log), log)
	runner := NewRunner(gate, NewRegistry(), time.Second, nil)

	ctx := context.Background()
	action, err := gate.Propose(ctx, &approval.Action{Kind: approval.KindCreateTicket, RuleID: "detect_drift", TargetRef: "delta"}, "governance-engine")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := gate.Approve(ctx, action.ID, "alice"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	_, err = runner.Run(ctx, action.ID)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Expected ExecutionError for the unregistered kind, got %v", err)
	}

	// Dispatch failure happens before the claim; the action stays approved.
	got, err := gate.Get(ctx, action.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != approval.StateApproved {
		t.Errorf("Expected approved, got %s", got.State)
	}
}
