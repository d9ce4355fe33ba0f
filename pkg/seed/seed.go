// Package seed loads demonstration fixtures into the governed store: a
// small SDLC snapshot with deployed projects, an audit gap, and a review
// queue deep enough to trip the builtin rules.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/datasource"
)

// Apply inserts the fixture data through ds. The adapter must support
// inserts (the memory, sqlite, and mongo backends all do).
func Apply(ctx context.Context, ds datasource.Adapter) error {
	seeder, ok := ds.(datasource.Seeder)
	if !ok {
		return fmt.Errorf("data source backend does not support seeding")
	}

	now := time.Now().UTC()
	logger := slog.Default().With("component", "seed")

	projects := []datasource.Document{
		{"name": "atlas", "deployed": true, "audited": true, "owner": "platform"},
		{"name": "delta", "deployed": true, "owner": "payments"},
		{"name": "orion", "deployed": true, "audited": false, "owner": "mobile"},
		{"name": "vega", "deployed": false, "owner": "data"},
	}
	if err := seeder.Insert(ctx, "projects", projects...); err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}

	documents := []datasource.Document{
		{"name": "atlas-runbook", "status": "pending_review", "updatedAt": now.Add(-2 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "delta-design", "status": "pending_review", "updatedAt": now.Add(-9 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "delta-runbook", "status": "pending_review", "updatedAt": now.Add(-4 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "orion-api-spec", "status": "pending_review", "updatedAt": now.Add(-16 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "orion-design", "status": "pending_review", "updatedAt": now.Add(-11 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "vega-proposal", "status": "pending_review", "updatedAt": now.Add(-6 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "atlas-postmortem", "status": "approved", "updatedAt": now.Add(-45 * 24 * time.Hour).Format(time.RFC3339)},
		{"name": "legacy-migration-notes", "status": "approved", "updatedAt": now.Add(-120 * 24 * time.Hour).Format(time.RFC3339)},
	}
	if err := seeder.Insert(ctx, "documents", documents...); err != nil {
		return fmt.Errorf("seed documents: %w", err)
	}

	logger.Info("fixtures loaded",
		"projects", len(projects),
		"documents", len(documents),
	)
	return nil
}
