// Package tools exposes the governance capabilities as named operations
// with declared input schemas. The registry is transport-neutral: the HTTP
// server and the MCP stdio server both dispatch into it, and the core is
// called synchronously underneath.
//
// Failures crossing this boundary are rendered as explanatory results, not
// propagated errors: a caller always gets text it can show a human.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/datasource"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/engine"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/executor"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
)

// Result is a tool invocation outcome. IsError marks results that describe
// a failure; the text is always safe to show directly to the caller.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// UnknownToolError indicates a dispatch against a tool name that is not
// registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Handler executes one tool against validated arguments.
type Handler func(ctx context.Context, args map[string]any) (*Result, error)

// Tool is a named governance operation.
type Tool struct {
	Name        string
	Description string

	// InputSchema is the JSON schema of the arguments object.
	InputSchema map[string]any

	Handler Handler
}

// Registry holds the tool set.
type Registry struct {
	byName map[string]*Tool
	order  []*Tool
}

// newRegistry creates an empty registry; tools are added at build time.
func newRegistry() *Registry {
	return &Registry{byName: make(map[string]*Tool)}
}

func (r *Registry) add(t *Tool) {
	r.byName[t.Name] = t
	r.order = append(r.order, t)
}

// List returns all tools in registration order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, len(r.order))
	copy(out, r.order)
	return out
}

// Dispatch invokes a tool by name. Typed failures from the core come back
// as error results; a non-nil error is only returned for an unknown tool or
// a handler bug.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (*Result, error) {
	tool, ok := r.byName[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := tool.Handler(ctx, args)
	if err != nil {
		return &Result{Text: renderError(err), IsError: true}, nil
	}
	return res, nil
}

// renderError turns the error taxonomy into user-facing text without
// leaking internals the transport should not have to inspect.
func renderError(err error) string {
	var (
		unknownRule   *rules.UnknownRuleError
		duplicateRule *rules.DuplicateRuleError
		unavailable   *datasource.UnavailableError
		ruleExec      *engine.RuleExecutionError
		invalid       *approval.InvalidTransitionError
		notFound      *approval.NotFoundError
		unconfigured  *executor.ConnectorUnconfiguredError
		execFailed    *executor.ExecutionError
	)
	switch {
	case errors.As(err, &unknownRule):
		return fmt.Sprintf("No rule named %q is registered.", unknownRule.ID)
	case errors.As(err, &duplicateRule):
		return fmt.Sprintf("Rule %q is already registered.", duplicateRule.ID)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("The data source could not be reached (%s during %s). No findings were produced; try again once the store is healthy.",
			unavailable.Backend, unavailable.Operation)
	case errors.As(err, &ruleExec):
		return fmt.Sprintf("Rule %s could not be evaluated: %v.", ruleExec.RuleID, ruleExec.Cause)
	case errors.As(err, &invalid):
		return fmt.Sprintf("Action %s is in state %q; the requested transition to %q is not allowed.",
			invalid.ActionID, invalid.From, invalid.To)
	case errors.As(err, &notFound):
		return fmt.Sprintf("No action with ID %q exists.", notFound.ActionID)
	case errors.As(err, &unconfigured):
		return fmt.Sprintf("The %s connector is not configured (missing %v). No side effect was attempted; the action remains approved.",
			unconfigured.Connector, unconfigured.Missing)
	case errors.As(err, &execFailed):
		retry := "Retrying will not help; re-propose the action after fixing the cause."
		if execFailed.Retryable {
			retry = "The failure looks transient; a deliberate re-proposal may succeed."
		}
		return fmt.Sprintf("Execution failed: %v. %s", execFailed.Cause, retry)
	default:
		return fmt.Sprintf("Operation failed: %v", err)
	}
}
