package rules

import "time"

// Thresholds carries the deployment-tunable cutoffs for the builtin rule
// set. Values come from configuration rather than being baked into the
// rules themselves.
type Thresholds struct {
	// BottleneckMaxPending is the number of pending-review documents above
	// which detect_bottleneck fires.
	BottleneckMaxPending int64

	// StaleAfter is the age past which a document counts as stale.
	StaleAfter time.Duration
}

// DefaultThresholds returns the thresholds used when configuration does not
// override them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BottleneckMaxPending: 5,
		StaleAfter:           30 * 24 * time.Hour,
	}
}

// Builtin returns the standard SDLC governance rule set.
func Builtin(t Thresholds) []*Rule {
	return []*Rule{
		{
			ID:          "detect_drift",
			Name:        "Deployment drift",
			Description: "Deployed projects that have no completed audit record.",
			Collection:  "projects",
			Severity:    SeverityCritical,
			Spec: Spec{
				Kind:         KindFieldDrift,
				MarkerField:  "deployed",
				MarkerValue:  true,
				MissingField: "audited",
			},
		},
		{
			ID:          "detect_bottleneck",
			Name:        "Review bottleneck",
			Description: "More documents waiting for review than the team can absorb.",
			Collection:  "documents",
			Severity:    SeverityWarning,
			Spec: Spec{
				Kind:     KindCountThreshold,
				Filter:   map[string]any{"status": "pending_review"},
				MaxCount: t.BottleneckMaxPending,
			},
		},
		{
			ID:          "stale_documents",
			Name:        "Stale documentation",
			Description: "Documents that have not been touched within the staleness window.",
			Collection:  "documents",
			Severity:    SeverityInfo,
			Spec: Spec{
				Kind:           KindStaleTimestamp,
				TimestampField: "updatedAt",
				MaxAge:         t.StaleAfter,
			},
		},
	}
}

// NewRegistryWithBuiltins creates a registry pre-populated with the builtin
// rule set.
func NewRegistryWithBuiltins(t Thresholds) (*Registry, error) {
	reg := NewRegistry()
	for _, rule := range Builtin(t) {
		if err := reg.Register(rule); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
