package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/engine"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/governor"
)

// DefaultActor is recorded when a tool call does not identify its actor.
const DefaultActor = "tool-client"

// NewRegistry builds the governance tool set over a wired runtime.
func NewRegistry(rt *governor.Runtime) *Registry {
	b := &builder{rt: rt}
	reg := newRegistry()

	reg.add(&Tool{
		Name:        "list_rules",
		Description: "List the registered governance rules.",
		InputSchema: objectSchema(nil, nil),
		Handler:     b.listRules,
	})
	reg.add(&Tool{
		Name:        "detect_drift",
		Description: "Find deployed projects that have no completed audit record.",
		InputSchema: objectSchema(nil, nil),
		Handler:     b.evaluateFixed("detect_drift"),
	})
	reg.add(&Tool{
		Name:        "detect_bottleneck",
		Description: "Check whether the review queue exceeds its configured limit.",
		InputSchema: objectSchema(nil, nil),
		Handler:     b.evaluateFixed("detect_bottleneck"),
	})
	reg.add(&Tool{
		Name:        "evaluate_rule",
		Description: "Evaluate one governance rule by ID.",
		InputSchema: objectSchema(map[string]any{
			"ruleId": map[string]any{"type": "string", "description": "Rule identifier"},
		}, []string{"ruleId"}),
		Handler: b.evaluateRule,
	})
	reg.add(&Tool{
		Name:        "propose_remediation",
		Description: "Evaluate a rule and propose a remediation action for each finding.",
		InputSchema: objectSchema(map[string]any{
			"ruleId":  map[string]any{"type": "string", "description": "Rule identifier"},
			"kind":    map[string]any{"type": "string", "description": "Action kind (create_ticket or update_document)", "default": "create_ticket"},
			"actorId": map[string]any{"type": "string", "description": "Who is proposing"},
		}, []string{"ruleId"}),
		Handler: b.proposeRemediation,
	})
	reg.add(&Tool{
		Name:        "review_action",
		Description: "Approve or reject a proposed remediation action.",
		InputSchema: objectSchema(map[string]any{
			"actionId": map[string]any{"type": "string", "description": "Action identifier"},
			"decision": map[string]any{"type": "string", "enum": []string{"approve", "reject"}},
			"actorId":  map[string]any{"type": "string", "description": "Who is deciding"},
			"reason":   map[string]any{"type": "string", "description": "Rejection reason"},
		}, []string{"actionId", "decision", "actorId"}),
		Handler: b.reviewAction,
	})
	reg.add(&Tool{
		Name:        "execute_action",
		Description: "Execute an approved remediation action (at most once).",
		InputSchema: objectSchema(map[string]any{
			"actionId": map[string]any{"type": "string", "description": "Action identifier"},
		}, []string{"actionId"}),
		Handler: b.executeAction,
	})
	reg.add(&Tool{
		Name:        "list_actions",
		Description: "List remediation actions, optionally filtered by state.",
		InputSchema: objectSchema(map[string]any{
			"state": map[string]any{"type": "string", "description": "Filter by lifecycle state"},
		}, nil),
		Handler: b.listActions,
	})
	reg.add(&Tool{
		Name:        "query_audit",
		Description: "Query the append-only audit trail.",
		InputSchema: objectSchema(map[string]any{
			"actionId":  map[string]any{"type": "string", "description": "Filter by action"},
			"eventType": map[string]any{"type": "string", "description": "Filter by event type"},
			"limit":     map[string]any{"type": "integer", "description": "Maximum entries returned"},
		}, nil),
		Handler: b.queryAudit,
	})

	return reg
}

type builder struct {
	rt *governor.Runtime
}

func (b *builder) listRules(_ context.Context, _ map[string]any) (*Result, error) {
	var sb strings.Builder
	for _, rule := range b.rt.Registry().List() {
		fmt.Fprintf(&sb, "%s [%s] %s: %s\n", rule.ID, rule.Severity, rule.Name, rule.Description)
	}
	if sb.Len() == 0 {
		return &Result{Text: "No rules registered."}, nil
	}
	return &Result{Text: sb.String()}, nil
}

func (b *builder) evaluateFixed(ruleID string) Handler {
	return func(ctx context.Context, _ map[string]any) (*Result, error) {
		return b.evaluate(ctx, ruleID)
	}
}

func (b *builder) evaluateRule(ctx context.Context, args map[string]any) (*Result, error) {
	ruleID, err := stringArg(args, "ruleId", true)
	if err != nil {
		return nil, err
	}
	return b.evaluate(ctx, ruleID)
}

func (b *builder) evaluate(ctx context.Context, ruleID string) (*Result, error) {
	start := time.Now()
	eval, err := b.rt.Engine().Evaluate(ctx, ruleID)
	if err != nil {
		b.rt.Metrics.RecordEvaluation(ruleID, "error", time.Since(start))
		return nil, err
	}
	b.rt.Metrics.RecordEvaluation(eval.RuleID, "ok", time.Since(start))
	for _, f := range eval.Findings {
		b.rt.Metrics.RecordFindings(eval.RuleID, string(f.Severity), 1)
	}
	return &Result{Text: renderEvaluation(eval)}, nil
}

func (b *builder) proposeRemediation(ctx context.Context, args map[string]any) (*Result, error) {
	ruleID, err := stringArg(args, "ruleId", true)
	if err != nil {
		return nil, err
	}
	kind, _ := stringArg(args, "kind", false)
	if kind == "" {
		kind = string(approval.KindCreateTicket)
	}
	actor, _ := stringArg(args, "actorId", false)
	if actor == "" {
		actor = DefaultActor
	}

	eval, err := b.rt.Engine().Evaluate(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if len(eval.Findings) == 0 {
		return &Result{Text: fmt.Sprintf("Rule %s found no violations; nothing to propose.", ruleID)}, nil
	}

	var sb strings.Builder
	for _, finding := range eval.Findings {
		action := engine.Propose(finding, engine.ActionTemplate{Kind: approval.Kind(kind)})
		saved, err := b.rt.Gate.Propose(ctx, action, actor)
		if err != nil {
			return nil, err
		}
		b.rt.Metrics.RecordTransition(string(approval.StateProposed))
		fmt.Fprintf(&sb, "proposed %s %s for %s: %s\n", saved.Kind, saved.ID, saved.TargetRef, finding.Summary)
	}
	return &Result{Text: sb.String()}, nil
}

func (b *builder) reviewAction(ctx context.Context, args map[string]any) (*Result, error) {
	actionID, err := stringArg(args, "actionId", true)
	if err != nil {
		return nil, err
	}
	decision, err := stringArg(args, "decision", true)
	if err != nil {
		return nil, err
	}
	actor, err := stringArg(args, "actorId", true)
	if err != nil {
		return nil, err
	}
	reason, _ := stringArg(args, "reason", false)

	switch decision {
	case "approve":
		action, err := b.rt.Gate.Approve(ctx, actionID, actor)
		if err != nil {
			return nil, err
		}
		b.rt.Metrics.RecordTransition(string(action.State))
		return &Result{Text: fmt.Sprintf("Action %s approved by %s.", action.ID, actor)}, nil
	case "reject":
		if reason == "" {
			reason = "no reason given"
		}
		action, err := b.rt.Gate.Reject(ctx, actionID, actor, reason)
		if err != nil {
			return nil, err
		}
		b.rt.Metrics.RecordTransition(string(action.State))
		return &Result{Text: fmt.Sprintf("Action %s rejected by %s: %s", action.ID, actor, reason)}, nil
	default:
		return nil, fmt.Errorf("decision must be \"approve\" or \"reject\", got %q", decision)
	}
}

func (b *builder) executeAction(ctx context.Context, args map[string]any) (*Result, error) {
	actionID, err := stringArg(args, "actionId", true)
	if err != nil {
		return nil, err
	}
	outcome, err := b.rt.Runner.Run(ctx, actionID)
	if err != nil {
		return nil, err
	}
	return &Result{Text: fmt.Sprintf("Action %s executed: %s", actionID, outcome.Detail)}, nil
}

func (b *builder) listActions(ctx context.Context, args map[string]any) (*Result, error) {
	state, _ := stringArg(args, "state", false)
	actions, err := b.rt.Gate.List(ctx, approval.ListFilter{State: approval.State(state)})
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return &Result{Text: "No actions found."}, nil
	}

	var sb strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&sb, "%s %s [%s] target=%s rule=%s\n", a.ID, a.Kind, a.State, a.TargetRef, a.RuleID)
	}
	return &Result{Text: sb.String()}, nil
}

func (b *builder) queryAudit(ctx context.Context, args map[string]any) (*Result, error) {
	actionID, _ := stringArg(args, "actionId", false)
	eventType, _ := stringArg(args, "eventType", false)
	limit := intArg(args, "limit")

	entries, err := b.rt.Audit.Query(ctx, &audit.Query{
		ActionID:  actionID,
		EventType: audit.EventType(eventType),
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &Result{Text: "No audit entries match."}, nil
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s actor=%s", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.EventType, e.ActorID)
		if e.ActionID != "" {
			fmt.Fprintf(&sb, " action=%s", e.ActionID)
		}
		if e.BeforeState != "" || e.AfterState != "" {
			fmt.Fprintf(&sb, " %s->%s", e.BeforeState, e.AfterState)
		}
		if e.Detail != "" {
			fmt.Fprintf(&sb, " %s", e.Detail)
		}
		sb.WriteByte('\n')
	}
	return &Result{Text: sb.String()}, nil
}

func renderEvaluation(eval *engine.Evaluation) string {
	var sb strings.Builder
	if len(eval.Findings) == 0 {
		fmt.Fprintf(&sb, "Rule %s: no violations.\n", eval.RuleID)
	} else {
		fmt.Fprintf(&sb, "Rule %s: %d finding(s).\n", eval.RuleID, len(eval.Findings))
		for _, f := range eval.Findings {
			fmt.Fprintf(&sb, "- [%s] %s\n", f.Severity, f.Summary)
		}
	}
	for _, note := range eval.Notes {
		fmt.Fprintf(&sb, "note: %s\n", note)
	}
	return sb.String()
}

func objectSchema(props map[string]any, required []string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required argument %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	if required && s == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return s, nil
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
