package engine

import (
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
)

// ActionTemplate shapes the remediation action proposed for a finding.
type ActionTemplate struct {
	// Kind selects the connector the action will execute through.
	Kind approval.Kind

	// TargetRef overrides the action target; defaults to the finding's
	// first entity reference.
	TargetRef string

	// Payload seeds connector parameters. The finding's summary is merged
	// in under "summary" and "description" unless already present.
	Payload map[string]any
}

// Propose is a pure transform from a finding into an unsaved action in
// state Proposed. It performs no I/O and assigns no identity; the approval
// gate does both when the action is saved.
func Propose(finding *Finding, tmpl ActionTemplate) *approval.Action {
	target := tmpl.TargetRef
	if target == "" && len(finding.EntityRefs) > 0 {
		target = finding.EntityRefs[0]
	}

	payload := make(map[string]any, len(tmpl.Payload)+2)
	for k, v := range tmpl.Payload {
		payload[k] = v
	}
	if _, ok := payload["summary"]; !ok {
		payload["summary"] = finding.Summary
	}
	if _, ok := payload["description"]; !ok {
		payload["description"] = finding.Summary
	}

	return &approval.Action{
		Kind:      tmpl.Kind,
		RuleID:    finding.RuleID,
		TargetRef: target,
		Payload:   payload,
		State:     approval.StateProposed,
	}
}
