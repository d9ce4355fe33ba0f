package rules

import "fmt"

// DuplicateRuleError indicates an attempt to register a rule whose ID is
// already present in the registry.
type DuplicateRuleError struct {
	ID string
}

// Error implements the error interface.
func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule %q is already registered", e.ID)
}

// UnknownRuleError indicates a lookup for a rule ID that is not registered.
type UnknownRuleError struct {
	ID string
}

// Error implements the error interface.
func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule %q", e.ID)
}
