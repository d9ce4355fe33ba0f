package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/approval"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/config"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/governor"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/seed"
)

func newTestRegistry(t *testing.T) (*Registry, *governor.Runtime) {
	t.Helper()
	ctx := context.Background()
	rt, err := governor.Build(ctx, config.Default())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { rt.Close() })

	if err := seed.Apply(ctx, rt.DataSource); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return NewRegistry(rt), rt
}

func dispatch(t *testing.T, reg *Registry, name string, args map[string]any) *Result {
	t.Helper()
	res, err := reg.Dispatch(context.Background(), name, args)
	if err != nil {
		t.Fatalf("Dispatch %s failed: %v", name, err)
	}
	return res
}

func TestRegistry_ListTools(t *testing.T) {
	reg, _ := newTestRegistry(t)

	want := []string{
		"list_rules", "detect_drift", "detect_bottleneck", "evaluate_rule",
		"propose_remediation", "review_action", "execute_action",
		"list_actions", "query_audit",
	}
	tools := reg.List()
	if len(tools) != len(want) {
		t.Fatalf("Expected %d tools, got %d", len(want), len(tools))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("Expected tool %s at position %d, got %s", name, i, tools[i].Name)
		}
		if tools[i].InputSchema["type"] != "object" {
			t.Errorf("Tool %s: expected object input schema", name)
		}
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Dispatch(context.Background(), "launch_missiles", nil)
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownToolError, got %v", err)
	}
}

func TestDispatch_DetectDrift(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "detect_drift", nil)
	if res.IsError {
		t.Fatalf("Expected success, got error: %s", res.Text)
	}
	// The fixtures ship two deployed projects without audit records.
	if !strings.Contains(res.Text, "delta") || !strings.Contains(res.Text, "orion") {
		t.Errorf("Expected delta and orion in findings, got: %s", res.Text)
	}
	if strings.Contains(res.Text, "atlas") {
		t.Errorf("Expected audited atlas to be absent, got: %s", res.Text)
	}
}

func TestDispatch_EvaluateRuleMissingArgument(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "evaluate_rule", nil)
	if !res.IsError {
		t.Fatal("Expected an error result for the missing ruleId")
	}
}

func TestDispatch_EvaluateUnknownRule(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "evaluate_rule", map[string]any{"ruleId": "nope"})
	if !res.IsError {
		t.Fatal("Expected an error result")
	}
	if !strings.Contains(res.Text, "nope") {
		t.Errorf("Expected the unknown rule named in the message, got: %s", res.Text)
	}
}

func TestDispatch_ProposeReviewExecuteFlow(t *testing.T) {
	reg, rt := newTestRegistry(t)
	ctx := context.Background()

	res := dispatch(t, reg, "propose_remediation", map[string]any{
		"ruleId":  "detect_drift",
		"kind":    "update_document",
		"actorId": "alice",
	})
	if res.IsError {
		t.Fatalf("propose_remediation failed: %s", res.Text)
	}

	proposed, err := rt.Gate.List(ctx, approval.ListFilter{State: approval.StateProposed})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(proposed) != 2 {
		t.Fatalf("Expected 2 proposed actions for delta and orion, got %d", len(proposed))
	}

	reject := dispatch(t, reg, "review_action", map[string]any{
		"actionId": proposed[0].ID,
		"decision": "reject",
		"actorId":  "alice",
		"reason":   "handled manually",
	})
	if reject.IsError {
		t.Fatalf("reject failed: %s", reject.Text)
	}

	approve := dispatch(t, reg, "review_action", map[string]any{
		"actionId": proposed[1].ID,
		"decision": "approve",
		"actorId":  "alice",
	})
	if approve.IsError {
		t.Fatalf("approve failed: %s", approve.Text)
	}

	// Approving the rejected action is refused with a readable explanation.
	again := dispatch(t, reg, "review_action", map[string]any{
		"actionId": proposed[0].ID,
		"decision": "approve",
		"actorId":  "bob",
	})
	if !again.IsError {
		t.Fatal("Expected approving a rejected action to be refused")
	}
	if !strings.Contains(again.Text, "rejected") {
		t.Errorf("Expected the current state in the message, got: %s", again.Text)
	}

	states := dispatch(t, reg, "list_actions", map[string]any{"state": "approved"})
	if states.IsError || !strings.Contains(states.Text, proposed[1].ID) {
		t.Errorf("Expected the approved action listed, got: %s", states.Text)
	}

	trail := dispatch(t, reg, "query_audit", map[string]any{"actionId": proposed[0].ID})
	if trail.IsError {
		t.Fatalf("query_audit failed: %s", trail.Text)
	}
	if !strings.Contains(trail.Text, "rejected") || !strings.Contains(trail.Text, "transition_denied") {
		t.Errorf("Expected both the rejection and the denied attempt in the trail, got: %s", trail.Text)
	}
}

func TestDispatch_ExecuteUnconfiguredTicketConnector(t *testing.T) {
	reg, rt := newTestRegistry(t)
	ctx := context.Background()

	dispatch(t, reg, "propose_remediation", map[string]any{"ruleId": "detect_drift", "actorId": "alice"})
	proposed, err := rt.Gate.List(ctx, approval.ListFilter{State: approval.StateProposed})
	if err != nil || len(proposed) == 0 {
		t.Fatalf("Expected proposed actions, got %v (%v)", proposed, err)
	}
	dispatch(t, reg, "review_action", map[string]any{
		"actionId": proposed[0].ID, "decision": "approve", "actorId": "alice",
	})

	// The default configuration carries no tracker credentials.
	res := dispatch(t, reg, "execute_action", map[string]any{"actionId": proposed[0].ID})
	if !res.IsError {
		t.Fatal("Expected an error result for the unconfigured connector")
	}
	if !strings.Contains(res.Text, "not configured") {
		t.Errorf("Expected a degraded-mode explanation, got: %s", res.Text)
	}

	// The action stays approved and executable once configured.
	got, err := rt.Gate.Get(ctx, proposed[0].ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != approval.StateApproved {
		t.Errorf("Expected approved, got %s", got.State)
	}
}

func TestDispatch_ListRules(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res := dispatch(t, reg, "list_rules", nil)
	if res.IsError {
		t.Fatalf("list_rules failed: %s", res.Text)
	}
	for _, id := range []string{"detect_drift", "detect_bottleneck", "stale_documents"} {
		if !strings.Contains(res.Text, id) {
			t.Errorf("Expected %s in the rule listing, got: %s", id, res.Text)
		}
	}
}
