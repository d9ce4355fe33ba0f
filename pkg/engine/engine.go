// Package engine evaluates governance rules against the operational data
// source and shapes raw matches into findings. Evaluation is read-only and
// deterministic: for an unchanged data snapshot, the same rule yields the
// same findings in the same order, across calls and process restarts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/datasource"
	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/rules"
)

// evaluateConcurrency bounds the parallel rule fan-out in EvaluateAll.
const evaluateConcurrency = 4

// Engine orchestrates rule evaluation. It holds no mutable state of its
// own; any number of engines (or engine instances across processes) may
// evaluate concurrently against a shared store.
type Engine struct {
	registry *rules.Registry
	ds       datasource.Adapter
	logger   *slog.Logger
}

// New creates an engine over the given registry and data source adapter.
func New(registry *rules.Registry, ds datasource.Adapter) *Engine {
	return &Engine{
		registry: registry,
		ds:       ds,
		logger:   slog.Default().With("component", "engine"),
	}
}

// Evaluate runs one rule and returns its findings. An empty result is a
// valid "no violation" outcome. A record that breaks predicate evaluation
// is skipped with a note on the evaluation; one bad record must not mask
// the remaining violations. Data source failures surface as
// *datasource.UnavailableError.
func (e *Engine) Evaluate(ctx context.Context, ruleID string) (*Evaluation, error) {
	rule, err := e.registry.Get(ruleID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var eval *Evaluation
	switch rule.Spec.Kind {
	case rules.KindFieldDrift:
		eval, err = e.evaluateFieldDrift(ctx, rule)
	case rules.KindCountThreshold:
		eval, err = e.evaluateCountThreshold(ctx, rule)
	case rules.KindStaleTimestamp:
		eval, err = e.evaluateStaleTimestamp(ctx, rule)
	default:
		return nil, &RuleExecutionError{RuleID: rule.ID, Cause: fmt.Errorf("unsupported rule kind %q", rule.Spec.Kind)}
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("rule evaluated",
		"rule_id", rule.ID,
		"findings", len(eval.Findings),
		"skipped", len(eval.Notes),
		"duration", time.Since(start),
	)
	return eval, nil
}

// EvaluateAll runs every registered rule with bounded concurrency. Rules
// that fail do not stop the sweep; their errors are joined into the
// returned error alongside the successful evaluations.
func (e *Engine) EvaluateAll(ctx context.Context) ([]*Evaluation, error) {
	list := e.registry.List()
	evals := make([]*Evaluation, len(list))
	errs := make([]error, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(evaluateConcurrency)
	for i, rule := range list {
		g.Go(func() error {
			eval, err := e.Evaluate(gctx, rule.ID)
			if err != nil {
				errs[i] = fmt.Errorf("rule %s: %w", rule.ID, err)
				return nil
			}
			evals[i] = eval
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Evaluation, 0, len(list))
	for _, eval := range evals {
		if eval != nil {
			out = append(out, eval)
		}
	}
	return out, errors.Join(errs...)
}

func (e *Engine) evaluateFieldDrift(ctx context.Context, rule *rules.Rule) (*Evaluation, error) {
	docs, err := e.ds.Query(ctx, rule.Collection, rule.Spec.Filter, nil)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{RuleID: rule.ID, EvaluatedAt: time.Now().UTC()}
	var matched []string
	for _, doc := range docs {
		ref, ok := entityRef(doc, rule.EntityField())
		if !ok {
			eval.Notes = append(eval.Notes, fmt.Sprintf("skipped record without %q field", rule.EntityField()))
			continue
		}
		marker, present := doc[rule.Spec.MarkerField]
		if !present || !valueEquals(marker, rule.Spec.MarkerValue) {
			continue
		}
		if fieldSatisfied(doc[rule.Spec.MissingField]) {
			continue
		}
		matched = append(matched, ref)
	}

	sort.Strings(matched)
	for _, ref := range matched {
		eval.Findings = append(eval.Findings, &Finding{
			RuleID:     rule.ID,
			EntityRefs: []string{ref},
			DetectedAt: eval.EvaluatedAt,
			Summary:    rule.RenderMatch(ref),
			Severity:   rule.Severity,
		})
	}
	return eval, nil
}

func (e *Engine) evaluateCountThreshold(ctx context.Context, rule *rules.Rule) (*Evaluation, error) {
	count, err := e.ds.Count(ctx, rule.Collection, rule.Spec.Filter)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{RuleID: rule.ID, EvaluatedAt: time.Now().UTC()}
	if count <= rule.Spec.MaxCount {
		return eval, nil
	}

	docs, err := e.ds.Query(ctx, rule.Collection, rule.Spec.Filter, []string{rule.EntityField()})
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, doc := range docs {
		ref, ok := entityRef(doc, rule.EntityField())
		if !ok {
			eval.Notes = append(eval.Notes, fmt.Sprintf("skipped record without %q field", rule.EntityField()))
			continue
		}
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	eval.Findings = append(eval.Findings, &Finding{
		RuleID:     rule.ID,
		EntityRefs: refs,
		DetectedAt: eval.EvaluatedAt,
		Summary:    rule.RenderThreshold(count, refs),
		Severity:   rule.Severity,
	})
	return eval, nil
}

func (e *Engine) evaluateStaleTimestamp(ctx context.Context, rule *rules.Rule) (*Evaluation, error) {
	docs, err := e.ds.Query(ctx, rule.Collection, rule.Spec.Filter, nil)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{RuleID: rule.ID, EvaluatedAt: time.Now().UTC()}
	cutoff := eval.EvaluatedAt.Add(-rule.Spec.MaxAge)

	var matched []string
	for _, doc := range docs {
		ref, ok := entityRef(doc, rule.EntityField())
		if !ok {
			eval.Notes = append(eval.Notes, fmt.Sprintf("skipped record without %q field", rule.EntityField()))
			continue
		}
		raw, present := doc[rule.Spec.TimestampField]
		if !present {
			eval.Notes = append(eval.Notes, fmt.Sprintf("skipped %q: no %s field", ref, rule.Spec.TimestampField))
			continue
		}
		ts, err := parseTimestamp(raw)
		if err != nil {
			eval.Notes = append(eval.Notes, fmt.Sprintf("skipped %q: %v", ref, err))
			continue
		}
		if ts.Before(cutoff) {
			matched = append(matched, ref)
		}
	}

	sort.Strings(matched)
	for _, ref := range matched {
		eval.Findings = append(eval.Findings, &Finding{
			RuleID:     rule.ID,
			EntityRefs: []string{ref},
			DetectedAt: eval.EvaluatedAt,
			Summary:    rule.RenderMatch(ref),
			Severity:   rule.Severity,
		})
	}
	return eval, nil
}

// entityRef extracts the document's identity as a string.
func entityRef(doc datasource.Document, field string) (string, bool) {
	v, ok := doc[field]
	if !ok {
		if v, ok = doc["_id"]; !ok {
			return "", false
		}
	}
	switch ref := v.(type) {
	case string:
		return ref, ref != ""
	case fmt.Stringer:
		return ref.String(), true
	default:
		return fmt.Sprintf("%v", ref), true
	}
}

// valueEquals compares loosely across the types JSON/BSON decoding can
// produce for the same logical value.
func valueEquals(a, b any) bool {
	if a == b {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// fieldSatisfied reports whether the companion field of a drift rule counts
// as present: absent, nil, false, and "" all count as missing.
func fieldSatisfied(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

// parseTimestamp handles the timestamp representations the opaque document
// model can carry: native times, RFC 3339 strings, and unix seconds.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02", t); err == nil {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", t)
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		return time.Unix(int64(t), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
