// Package executor performs approved remediation actions through external
// connectors. Executors are only ever invoked after the approval gate's
// BeginExecution compare-and-set succeeds, so each one runs at most once
// per action; the executor itself need not be idempotent but must surface
// enough identifying information (e.g. the created ticket key) for post-hoc
// dedup.
package executor

import (
	"context"
	"fmt"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
)

// Outcome reports a completed execution.
type Outcome struct {
	// Reference identifies the side effect in the external system.
	Reference string `json:"reference,omitempty"`

	// Detail is a human-readable account of what happened.
	Detail string `json:"detail,omitempty"`
}

// Executor performs the side effect for one action kind.
type Executor interface {
	// Ready reports whether the connector is configured. It must not touch
	// the network; a ConnectorUnconfiguredError here prevents any state
	// transition or outbound call.
	Ready() error

	// Execute performs the action's side effect. Failures are returned as
	// *ExecutionError with a retryable classification.
	Execute(ctx context.Context, action *approval.Action) (*Outcome, error)
}

// Registry maps action kinds to their executors.
type Registry struct {
	executors map[approval.Kind]Executor
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[approval.Kind]Executor)}
}

// Register binds an executor to an action kind, replacing any previous
// binding.
func (r *Registry) Register(kind approval.Kind, exec Executor) {
	r.executors[kind] = exec
}

// For returns the executor for an action kind.
func (r *Registry) For(kind approval.Kind) (Executor, error) {
	exec, ok := r.executors[kind]
	if !ok {
		return nil, &ExecutionError{
			Connector: string(kind),
			Retryable: false,
			Cause:     fmt.Errorf("no executor registered for kind %q", kind),
		}
	}
	return exec, nil
}
