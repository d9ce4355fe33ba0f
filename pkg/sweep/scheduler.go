// Package sweep runs the continuous evaluation loop: on a cron schedule,
// every registered rule is evaluated and each sweep's observations are
// appended to the audit trail as Detected events. Findings themselves are
// not persisted; the audit entry is the durable trace of a detection.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/engine"
)

// SweepActor is the actor ID recorded on Detected audit entries.
const SweepActor = "governance-sweep"

// Evaluator runs the full rule set. Satisfied by the engine or by the
// runtime wrapper that swaps engines on configuration reload.
type Evaluator interface {
	EvaluateAll(ctx context.Context) ([]*engine.Evaluation, error)
}

// Metrics is the subset of the telemetry collector the sweep reports to.
type Metrics interface {
	RecordEvaluation(rule, outcome string, duration time.Duration)
	RecordFindings(rule, severity string, count int)
}

// Scheduler runs evaluations on a cron schedule.
type Scheduler struct {
	evaluator Evaluator
	log       audit.Log
	schedule  string
	metrics   Metrics
	cron      *cron.Cron
	mu        sync.Mutex
	running   bool
	logger    *slog.Logger
}

// NewScheduler creates a sweep scheduler. metrics may be nil.
func NewScheduler(evaluator Evaluator, log audit.Log, schedule string, metrics Metrics) *Scheduler {
	return &Scheduler{
		evaluator: evaluator,
		log:       log,
		schedule:  schedule,
		metrics:   metrics,
		cron:      cron.New(),
		logger:    slog.Default().With("component", "sweep"),
	}
}

// Start begins scheduled sweeps. An empty schedule disables the sweep.
//
// Common cron expressions:
//   - "*/5 * * * *" - every five minutes
//   - "0 6 * * *"   - daily at 6 AM
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduled sweeps. In-flight sweeps run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("sweep scheduler stopped")
}

// RunOnce evaluates all rules now and records the detections. Per-rule
// failures are logged and do not abort the sweep.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	evals, err := s.evaluator.EvaluateAll(ctx)
	if err != nil {
		s.logger.Warn("sweep completed with rule failures", "error", err)
	}

	for _, eval := range evals {
		s.observe(eval, time.Since(start))
		if len(eval.Findings) == 0 {
			continue
		}
		entry := &audit.Entry{
			ActorID:    SweepActor,
			EventType:  audit.EventDetected,
			EntityRefs: eval.EntityRefs(),
			Timestamp:  eval.EvaluatedAt,
			Detail:     fmt.Sprintf("rule %s detected %d finding(s)", eval.RuleID, len(eval.Findings)),
		}
		if err := s.log.Append(ctx, entry); err != nil {
			s.logger.Error("failed to record detection", "rule_id", eval.RuleID, "error", err)
		}
	}

	s.logger.Info("sweep completed", "rules", len(evals), "duration", time.Since(start))
}

func (s *Scheduler) observe(eval *engine.Evaluation, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordEvaluation(eval.RuleID, "ok", d)
	for _, f := range eval.Findings {
		s.metrics.RecordFindings(eval.RuleID, string(f.Severity), 1)
	}
}
