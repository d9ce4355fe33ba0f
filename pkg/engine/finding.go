package engine

import (
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
)

// Finding is a structured record of one detected policy violation. Findings
// are produced only by Evaluate, never mutated, and never persisted; only
// proposed actions and their lifecycle reach the audit trail.
type Finding struct {
	// RuleID is the rule that detected the violation.
	RuleID string `json:"rule_id"`

	// EntityRefs are the opaque identifiers of the violating entities, in
	// ascending order.
	EntityRefs []string `json:"entity_refs"`

	// DetectedAt is when the evaluation observed the violation.
	DetectedAt time.Time `json:"detected_at"`

	// Summary is the rule's human-readable rendering of the violation.
	Summary string `json:"summary"`

	// Severity is inherited from the rule.
	Severity rules.Severity `json:"severity"`
}

// Evaluation is the result of running one rule. An empty Findings slice is
// a valid outcome meaning no violation.
type Evaluation struct {
	// RuleID is the evaluated rule.
	RuleID string `json:"rule_id"`

	// Findings holds the detected violations ordered by entity identifier.
	Findings []*Finding `json:"findings"`

	// Notes records degradations: entities skipped because their data broke
	// predicate evaluation. A note never hides the remaining findings.
	Notes []string `json:"notes,omitempty"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// EntityRefs returns every entity referenced by the evaluation's findings.
func (e *Evaluation) EntityRefs() []string {
	var refs []string
	for _, f := range e.Findings {
		refs = append(refs, f.EntityRefs...)
	}
	return refs
}
