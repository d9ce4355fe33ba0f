package datasource

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "governance.db")
	s, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_InsertAndQuery(t *testing.T) {
	s := newTestSQLite(t)
	seedProjects(t, s)

	docs, err := s.Query(context.Background(), "projects", nil, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("Expected 4 documents, got %d", len(docs))
	}

	want := []string{"atlas", "delta", "orion", "vega"}
	for i, name := range want {
		if docs[i]["name"] != name {
			t.Errorf("Expected %s at position %d, got %v", name, i, docs[i]["name"])
		}
	}
}

func TestSQLite_QueryFilter(t *testing.T) {
	s := newTestSQLite(t)
	seedProjects(t, s)

	docs, err := s.Query(context.Background(), "projects", Filter{"deployed": true}, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 deployed projects, got %d", len(docs))
	}
}

func TestSQLite_CollectionsAreIsolated(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.Insert(ctx, "projects", Document{"name": "atlas"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(ctx, "documents", Document{"name": "runbook"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	docs, err := s.Query(ctx, "documents", nil, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 1 || docs[0]["name"] != "runbook" {
		t.Errorf("Expected only the documents collection contents, got %v", docs)
	}
}

func TestSQLite_Count(t *testing.T) {
	s := newTestSQLite(t)
	seedProjects(t, s)

	n, err := s.Count(context.Background(), "projects", Filter{"deployed": true})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected count 3, got %d", n)
	}
}

func TestSQLite_Update(t *testing.T) {
	s := newTestSQLite(t)
	seedProjects(t, s)
	ctx := context.Background()

	res, err := s.Update(ctx, "projects", Filter{"name": "delta"}, map[string]any{"audited": true})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if res.MatchedCount != 1 {
		t.Fatalf("Expected 1 match, got %d", res.MatchedCount)
	}

	docs, err := s.Query(ctx, "projects", Filter{"name": "delta"}, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0]["audited"] != true {
		t.Errorf("Expected audited=true after update, got %v", docs[0]["audited"])
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governance.db")
	cfg := DefaultSQLiteConfig()
	cfg.Path = path
	ctx := context.Background()

	s, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := s.Insert(ctx, "projects", Document{"name": "atlas", "deployed": true}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	docs, err := reopened.Query(ctx, "projects", nil, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 1 || docs[0]["name"] != "atlas" {
		t.Errorf("Expected persisted document, got %v", docs)
	}
}
