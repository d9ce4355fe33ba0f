package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/datasource"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
)

func newDriftEngine(t *testing.T, docs ...datasource.Document) *Engine {
	t.Helper()
	ds := datasource.NewMemory()
	if err := ds.Insert(context.Background(), "projects", docs...); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	reg, err := rules.NewRegistryWithBuiltins(rules.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewRegistryWithBuiltins failed: %v", err)
	}
	return New(reg, ds)
}

func TestEvaluate_FieldDrift(t *testing.T) {
	eng := newDriftEngine(t,
		datasource.Document{"name": "atlas", "deployed": true, "audited": true},
		datasource.Document{"name": "orion", "deployed": true, "audited": false},
		datasource.Document{"name": "delta", "deployed": true},
		datasource.Document{"name": "vega", "deployed": false},
	)

	eval, err := eng.Evaluate(context.Background(), "detect_drift")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// atlas is audited and vega is not deployed; delta and orion drift,
	// reported in ascending entity order regardless of insertion order.
	if len(eval.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %d", len(eval.Findings))
	}
	if eval.Findings[0].EntityRefs[0] != "delta" {
		t.Errorf("Expected first finding for delta, got %v", eval.Findings[0].EntityRefs)
	}
	if eval.Findings[1].EntityRefs[0] != "orion" {
		t.Errorf("Expected second finding for orion, got %v", eval.Findings[1].EntityRefs)
	}
	for _, f := range eval.Findings {
		if f.RuleID != "detect_drift" {
			t.Errorf("Expected rule detect_drift on finding, got %s", f.RuleID)
		}
		if f.Severity != rules.SeverityCritical {
			t.Errorf("Expected critical severity, got %s", f.Severity)
		}
		if f.Summary == "" {
			t.Error("Expected a rendered summary")
		}
	}
}

func TestEvaluate_NoViolations(t *testing.T) {
	eng := newDriftEngine(t,
		datasource.Document{"name": "atlas", "deployed": true, "audited": true},
	)

	eval, err := eng.Evaluate(context.Background(), "detect_drift")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(eval.Findings) != 0 {
		t.Errorf("Expected no findings, got %d", len(eval.Findings))
	}
	if len(eval.Notes) != 0 {
		t.Errorf("Expected no notes, got %v", eval.Notes)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	eng := newDriftEngine(t,
		datasource.Document{"name": "orion", "deployed": true},
		datasource.Document{"name": "delta", "deployed": true},
	)
	ctx := context.Background()

	first, err := eng.Evaluate(ctx, "detect_drift")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	second, err := eng.Evaluate(ctx, "detect_drift")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if len(first.Findings) != len(second.Findings) {
		t.Fatalf("Expected identical finding counts, got %d and %d", len(first.Findings), len(second.Findings))
	}
	for i := range first.Findings {
		if first.Findings[i].Summary != second.Findings[i].Summary {
			t.Errorf("Finding %d differs between runs: %q vs %q", i, first.Findings[i].Summary, second.Findings[i].Summary)
		}
	}
}

func TestEvaluate_MalformedRecordSkippedWithNote(t *testing.T) {
	eng := newDriftEngine(t,
		datasource.Document{"deployed": true},
		datasource.Document{"name": "delta", "deployed": true},
	)

	eval, err := eng.Evaluate(context.Background(), "detect_drift")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// The identity-less record is skipped; it must not mask the real finding.
	if len(eval.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(eval.Findings))
	}
	if eval.Findings[0].EntityRefs[0] != "delta" {
		t.Errorf("Expected finding for delta, got %v", eval.Findings[0].EntityRefs)
	}
	if len(eval.Notes) != 1 {
		t.Fatalf("Expected 1 note for the skipped record, got %v", eval.Notes)
	}
}

func TestEvaluate_CountThreshold(t *testing.T) {
	ds := datasource.NewMemory()
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		doc := datasource.Document{"name": fmt.Sprintf("doc-%d", i), "status": "pending_review"}
		if err := ds.Insert(ctx, "documents", doc); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	reg, err := rules.NewRegistryWithBuiltins(rules.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewRegistryWithBuiltins failed: %v", err)
	}
	eng := New(reg, ds)

	eval, err := eng.Evaluate(ctx, "detect_bottleneck")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(eval.Findings) != 1 {
		t.Fatalf("Expected a single aggregate finding, got %d", len(eval.Findings))
	}
	if len(eval.Findings[0].EntityRefs) != 6 {
		t.Errorf("Expected 6 entity refs, got %d", len(eval.Findings[0].EntityRefs))
	}
}

func TestEvaluate_CountThresholdAtBoundary(t *testing.T) {
	ds := datasource.NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		doc := datasource.Document{"name": fmt.Sprintf("doc-%d", i), "status": "pending_review"}
		if err := ds.Insert(ctx, "documents", doc); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	reg, err := rules.NewRegistryWithBuiltins(rules.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewRegistryWithBuiltins failed: %v", err)
	}
	eng := New(reg, ds)

	// Exactly at the threshold is not a violation.
	eval, err := eng.Evaluate(ctx, "detect_bottleneck")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(eval.Findings) != 0 {
		t.Errorf("Expected no findings at the threshold, got %d", len(eval.Findings))
	}
}

func TestEvaluate_StaleTimestamp(t *testing.T) {
	ds := datasource.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()
	docs := []datasource.Document{
		{"name": "fresh", "updatedAt": now.Add(-24 * time.Hour).Format(time.RFC3339)},
		{"name": "ancient", "updatedAt": now.Add(-60 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "untimed"},
	}
	if err := ds.Insert(ctx, "documents", docs...); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	reg, err := rules.NewRegistryWithBuiltins(rules.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewRegistryWithBuiltins failed: %v", err)
	}
	eng := New(reg, ds)

	eval, err := eng.Evaluate(ctx, "stale_documents")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(eval.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(eval.Findings))
	}
	if eval.Findings[0].EntityRefs[0] != "ancient" {
		t.Errorf("Expected finding for ancient, got %v", eval.Findings[0].EntityRefs)
	}
	if len(eval.Notes) != 1 {
		t.Errorf("Expected a note for the record without a timestamp, got %v", eval.Notes)
	}
}

func TestEvaluate_UnknownRule(t *testing.T) {
	eng := newDriftEngine(t)

	_, err := eng.Evaluate(context.Background(), "nope")
	var unknown *rules.UnknownRuleError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownRuleError, got %v", err)
	}
}

// failingAdapter simulates an unreachable store.
type failingAdapter struct{}

func (failingAdapter) Query(context.Context, string, datasource.Filter, []string) ([]datasource.Document, error) {
	return nil, datasource.NewUnavailableError("memory", "query", errors.New("connection refused"))
}

func (failingAdapter) Count(context.Context, string, datasource.Filter) (int64, error) {
	return 0, datasource.NewUnavailableError("memory", "count", errors.New("connection refused"))
}

func (failingAdapter) Update(context.Context, string, datasource.Filter, map[string]any) (*datasource.UpdateResult, error) {
	return nil, datasource.NewUnavailableError("memory", "update", errors.New("connection refused"))
}

func (failingAdapter) Close() error { return nil }

func TestEvaluate_DataSourceUnavailable(t *testing.T) {
	reg, err := rules.NewRegistryWithBuiltins(rules.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewRegistryWithBuiltins failed: %v", err)
	}
	eng := New(reg, failingAdapter{})

	_, err = eng.Evaluate(context.Background(), "detect_drift")
	var unavailable *datasource.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected UnavailableError, got %v", err)
	}
}

func TestEvaluateAll_PartialFailure(t *testing.T) {
	// detect_drift reads projects, the other rules read documents. A store
	// that fails only on documents must still produce the drift evaluation.
	ds := partialAdapter{ok: datasource.NewMemory()}
	if err := ds.ok.Insert(context.Background(), "projects", datasource.Document{"name": "delta", "deployed": true}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	reg, err := rules.NewRegistryWithBuiltins(rules.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewRegistryWithBuiltins failed: %v", err)
	}
	eng := New(reg, ds)

	evals, err := eng.EvaluateAll(context.Background())
	if err == nil {
		t.Fatal("Expected joined errors from the failing rules")
	}
	if len(evals) != 1 {
		t.Fatalf("Expected 1 successful evaluation, got %d", len(evals))
	}
	if evals[0].RuleID != "detect_drift" {
		t.Errorf("Expected detect_drift to succeed, got %s", evals[0].RuleID)
	}
}

// partialAdapter serves the projects collection and fails on everything else.
type partialAdapter struct {
	ok *datasource.Memory
}

func (p partialAdapter) Query(ctx context.Context, collection string, filter datasource.Filter, projection []string) ([]datasource.Document, error) {
	if collection != "projects" {
		return nil, datasource.NewUnavailableError("memory", "query", errors.New("collection offline"))
	}
	return p.ok.Query(ctx, collection, filter, projection)
}

func (p partialAdapter) Count(ctx context.Context, collection string, filter datasource.Filter) (int64, error) {
	if collection != "projects" {
		return 0, datasource.NewUnavailableError("memory", "count", errors.New("collection offline"))
	}
	return p.ok.Count(ctx, collection, filter)
}

func (p partialAdapter) Update(ctx context.Context, collection string, filter datasource.Filter, patch map[string]any) (*datasource.UpdateResult, error) {
	return p.ok.Update(ctx, collection, filter, patch)
}

func (p partialAdapter) Close() error { return nil }
