package engine

import "fmt"

// RuleExecutionError indicates a rule could not be evaluated at all (as
// opposed to individual malformed records, which are skipped and noted on
// the evaluation).
type RuleExecutionError struct {
	RuleID string
	Cause  error
}

// Error implements the error interface.
func (e *RuleExecutionError) Error() string {
	return fmt.Sprintf("rule %s failed to execute: %v", e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RuleExecutionError) Unwrap() error {
	return e.Cause
}
