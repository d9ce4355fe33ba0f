package rules

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies how serious a rule violation is.
type Severity string

const (
	// SeverityInfo marks advisory findings.
	SeverityInfo Severity = "info"

	// SeverityWarning marks findings that need attention but do not block delivery.
	SeverityWarning Severity = "warning"

	// SeverityCritical marks findings that represent a governance breach.
	SeverityCritical Severity = "critical"
)

// Kind identifies the evaluation variant of a rule. Every rule is one of a
// small set of variants evaluated through a single generic path in the
// governance engine, rather than an arbitrary per-rule closure.
type Kind string

const (
	// KindFieldDrift matches documents where a marker field holds an expected
	// value but a companion field is absent or falsy (e.g. deployed projects
	// with no audit record).
	KindFieldDrift Kind = "field_drift"

	// KindCountThreshold fires when the number of documents matching the
	// rule's filter exceeds a configured cutoff.
	KindCountThreshold Kind = "count_threshold"

	// KindStaleTimestamp matches documents whose timestamp field is older
	// than a configured window.
	KindStaleTimestamp Kind = "stale_timestamp"
)

// Spec is the tagged-variant body of a rule. Only the fields relevant to the
// rule's Kind are consulted during evaluation.
type Spec struct {
	// Kind selects the evaluation variant.
	Kind Kind

	// Filter is the scope filter applied at the data source (field equality).
	// A nil filter selects the whole collection.
	Filter map[string]any

	// IdentityField names the document field used as the entity reference.
	// Defaults to "name" when empty.
	IdentityField string

	// MarkerField / MarkerValue / MissingField configure KindFieldDrift:
	// a document violates the rule when MarkerField equals MarkerValue and
	// MissingField is absent, nil, or false.
	MarkerField  string
	MarkerValue  any
	MissingField string

	// MaxCount configures KindCountThreshold.
	MaxCount int64

	// TimestampField / MaxAge configure KindStaleTimestamp.
	TimestampField string
	MaxAge         time.Duration
}

// Rule is a named governance policy: a scope (the collection it inspects),
// a tagged-variant predicate, a severity, and a human-readable rendering of
// violations. Rules are immutable once registered.
type Rule struct {
	// ID uniquely identifies the rule within a registry.
	ID string

	// Name is the human-readable rule name.
	Name string

	// Description explains what the rule governs.
	Description string

	// Collection is the data source collection the rule inspects.
	Collection string

	// Severity classifies violations of this rule.
	Severity Severity

	// Spec holds the variant-specific predicate configuration.
	Spec Spec
}

// EntityField returns the document field used as the entity reference.
func (r *Rule) EntityField() string {
	if r.Spec.IdentityField != "" {
		return r.Spec.IdentityField
	}
	return "name"
}

// RenderMatch produces the human-readable summary for a single violating
// entity.
func (r *Rule) RenderMatch(entityRef string) string {
	switch r.Spec.Kind {
	case KindFieldDrift:
		return fmt.Sprintf("%s: %q has %s=%v but %s is not set",
			r.Name, entityRef, r.Spec.MarkerField, r.Spec.MarkerValue, r.Spec.MissingField)
	case KindStaleTimestamp:
		return fmt.Sprintf("%s: %q has not been updated in over %s",
			r.Name, entityRef, r.Spec.MaxAge)
	default:
		return fmt.Sprintf("%s: %q violates %s", r.Name, entityRef, r.ID)
	}
}

// RenderThreshold produces the summary for a count-threshold violation
// covering the full match set.
func (r *Rule) RenderThreshold(count int64, entityRefs []string) string {
	return fmt.Sprintf("%s: %d documents exceed the configured limit of %d [%s]",
		r.Name, count, r.Spec.MaxCount, strings.Join(entityRefs, ", "))
}
