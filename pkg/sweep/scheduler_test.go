package sweep

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/engine"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
)

type stubEvaluator struct {
	evals []*engine.Evaluation
	err   error
	calls int
}

func (s *stubEvaluator) EvaluateAll(_ context.Context) ([]*engine.Evaluation, error) {
	s.calls++
	return s.evals, s.err
}

func evaluation(ruleID string, refs ...string) *engine.Evaluation {
	eval := &engine.Evaluation{RuleID: ruleID, EvaluatedAt: time.Now().UTC()}
	for _, ref := range refs {
		eval.Findings = append(eval.Findings, &engine.Finding{
			RuleID:     ruleID,
			EntityRefs: []string{ref},
			DetectedAt: eval.EvaluatedAt,
			Summary:    ref,
			Severity:   rules.SeverityWarning,
		})
	}
	return eval
}

func TestRunOnce_RecordsDetections(t *testing.T) {
	log := audit.NewMemoryLog()
	defer log.Close()

	eval := &stubEvaluator{evals: []*engine.Evaluation{
		evaluation("detect_drift", "delta", "orion"),
		evaluation("stale_documents"),
	}}
	s := NewScheduler(eval, log, "", nil)
	s.RunOnce(context.Background())

	entries, err := log.Query(context.Background(), &audit.Query{EventType: audit.EventDetected})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 detection entry (clean rules are not recorded), got %d", len(entries))
	}
	e := entries[0]
	if e.ActorID != SweepActor {
		t.Errorf("Expected actor %s, got %s", SweepActor, e.ActorID)
	}
	if len(e.EntityRefs) != 2 {
		t.Errorf("Expected 2 entity refs, got %v", e.EntityRefs)
	}
	if !strings.Contains(e.Detail, "detect_drift") {
		t.Errorf("Expected the rule named in the detail, got %q", e.Detail)
	}
}

func TestRunOnce_PartialFailureStillRecords(t *testing.T) {
	log := audit.NewMemoryLog()
	defer log.Close()

	eval := &stubEvaluator{
		evals: []*engine.Evaluation{evaluation("detect_drift", "delta")},
		err:   errors.New("rule stale_documents: store offline"),
	}
	s := NewScheduler(eval, log, "", nil)
	s.RunOnce(context.Background())

	entries, err := log.Query(context.Background(), &audit.Query{EventType: audit.EventDetected})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected the surviving rule's detection recorded, got %d entries", len(entries))
	}
}

func TestStart_EmptyScheduleIsDisabled(t *testing.T) {
	log := audit.NewMemoryLog()
	defer log.Close()

	eval := &stubEvaluator{}
	s := NewScheduler(eval, log, "", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule should be a no-op, got %v", err)
	}
	if eval.calls != 0 {
		t.Errorf("Expected no evaluations, got %d", eval.calls)
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	log := audit.NewMemoryLog()
	defer log.Close()

	s := NewScheduler(&stubEvaluator{}, log, "not a cron line", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Expected an error for an invalid schedule")
	}
}

func TestStartStop(t *testing.T) {
	log := audit.NewMemoryLog()
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(&stubEvaluator{}, log, "*/5 * * * *", nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	s.Stop()
}
