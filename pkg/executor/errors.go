package executor

import (
	"fmt"
	"strings"
)

// ExecutionError represents a failed connector call. Retryable indicates
// whether a fresh attempt could plausibly succeed (timeouts, 5xx) or not
// (validation failures, 4xx). The engine never retries on its own either
// way; retry is a deliberate, externally triggered re-proposal.
type ExecutionError struct {
	Connector string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	kind := "non-retryable"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("execution failed [connector=%s, %s]: %v", e.Connector, kind, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ConnectorUnconfiguredError indicates required connector configuration is
// absent. It is raised before any network endpoint is contacted and never
// transitions the action; fixing the configuration makes the action
// executable again.
type ConnectorUnconfiguredError struct {
	Connector string
	Missing   []string
}

// Error implements the error interface.
func (e *ConnectorUnconfiguredError) Error() string {
	return fmt.Sprintf("connector %q is not configured: missing %s", e.Connector, strings.Join(e.Missing, ", "))
}
