package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
)

// Metrics is the subset of the telemetry collector the runner reports to.
type Metrics interface {
	RecordExecution(kind, outcome string, duration time.Duration)
}

// Runner drives one execution attempt end to end: claim the action through
// the gate's compare-and-set, invoke the connector under a timeout, and
// resolve the action to a terminal state. An attempt that cannot confirm
// completion is resolved to Failed; an action is never left Executing.
type Runner struct {
	gate     *approval.Gate
	registry *Registry
	timeout  time.Duration
	metrics  Metrics
	logger   *slog.Logger
}

// NewRunner creates a runner. timeout bounds each connector invocation;
// zero means 30 seconds. metrics may be nil.
func NewRunner(gate *approval.Gate, registry *Registry, timeout time.Duration, metrics Metrics) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		gate:     gate,
		registry: registry,
		timeout:  timeout,
		metrics:  metrics,
		logger:   slog.Default().With("component", "executor.runner"),
	}
}

// Run executes an approved action at most once.
//
// Connector readiness is checked before the state machine is touched:
// missing configuration degrades gracefully with ConnectorUnconfiguredError
// and the action stays Approved, executable again once configured. After
// BeginExecution succeeds the attempt always reaches CompleteExecution,
// even when the caller's context is cancelled mid-flight.
func (r *Runner) Run(ctx context.Context, actionID string) (*Outcome, error) {
	action, err := r.gate.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	exec, err := r.registry.For(action.Kind)
	if err != nil {
		return nil, err
	}
	if err := exec.Ready(); err != nil {
		r.logger.Warn("connector not configured, execution not attempted",
			"action_id", actionID, "kind", action.Kind, "error", err)
		return nil, err
	}

	claimed, err := r.gate.BeginExecution(ctx, actionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	// The completion write must survive caller cancellation, otherwise the
	// action would be stuck in Executing.
	resolveCtx := context.WithoutCancel(ctx)
	execCtx, cancel := context.WithTimeout(resolveCtx, r.timeout)
	defer cancel()

	outcome, execErr := exec.Execute(execCtx, claimed)
	duration := time.Since(start)

	if execErr != nil {
		if _, completeErr := r.gate.CompleteExecution(resolveCtx, actionID, approval.Result{Err: execErr}); completeErr != nil {
			r.logger.Error("failed to record execution failure",
				"action_id", actionID, "exec_error", execErr, "complete_error", completeErr)
		}
		r.record(string(action.Kind), "failed", duration)
		return nil, execErr
	}

	if _, err := r.gate.CompleteExecution(resolveCtx, actionID, approval.Result{
		Reference: outcome.Reference,
		Detail:    outcome.Detail,
	}); err != nil {
		r.record(string(action.Kind), "failed", duration)
		return nil, err
	}

	r.record(string(action.Kind), "executed", duration)
	return outcome, nil
}

func (r *Runner) record(kind, outcome string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordExecution(kind, outcome, d)
	}
}
