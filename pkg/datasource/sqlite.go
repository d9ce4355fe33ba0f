package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig contains configuration for the SQLite adapter backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite adapter configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/governance.db",
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// SQLite stores collections as JSON document rows. Filters are evaluated
// in-process so the backend imposes no schema on documents, matching the
// adapter contract.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (and if needed initializes) a SQLite-backed adapter.
func NewSQLite(cfg *SQLiteConfig) (*SQLite, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, NewUnavailableError("sqlite", "open", err)
	}

	s := &SQLite{
		db:     db,
		logger: slog.Default().With("component", "datasource.sqlite"),
	}

	if cfg.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, NewUnavailableError("sqlite", "enable_wal", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, NewUnavailableError("sqlite", "set_busy_timeout", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, NewUnavailableError("sqlite", "create_schema", err)
	}

	s.logger.Info("sqlite datasource initialized", "path", cfg.Path, "wal_mode", cfg.WALMode)
	return s, nil
}

// Insert appends documents to a collection. Implements Seeder.
func (s *SQLite) Insert(ctx context.Context, collection string, docs ...Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewUnavailableError("sqlite", "insert", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return NewUnavailableError("sqlite", "insert", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (collection, body) VALUES (?, ?)", collection, string(body)); err != nil {
			return NewUnavailableError("sqlite", "insert", err)
		}
	}
	return tx.Commit()
}

// Query returns matching documents in insertion order.
func (s *SQLite) Query(ctx context.Context, collection string, filter Filter, projection []string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM documents WHERE collection = ? ORDER BY seq ASC", collection)
	if err != nil {
		return nil, NewUnavailableError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, NewUnavailableError("sqlite", "query", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, NewUnavailableError("sqlite", "query", err)
		}
		if matches(doc, filter) {
			out = append(out, project(doc, projection))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, NewUnavailableError("sqlite", "query", err)
	}
	return out, nil
}

// Count returns the number of matching documents.
func (s *SQLite) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	docs, err := s.Query(ctx, collection, filter, []string{"_none_"})
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

// Update applies patch to every matching document inside one transaction.
func (s *SQLite) Update(ctx context.Context, collection string, filter Filter, patch map[string]any) (*UpdateResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, NewUnavailableError("sqlite", "update", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT seq, body FROM documents WHERE collection = ? ORDER BY seq ASC", collection)
	if err != nil {
		return nil, NewUnavailableError("sqlite", "update", err)
	}

	type patched struct {
		seq  int64
		body string
	}
	var updates []patched
	var matched int64
	for rows.Next() {
		var seq int64
		var body string
		if err := rows.Scan(&seq, &body); err != nil {
			rows.Close()
			return nil, NewUnavailableError("sqlite", "update", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			rows.Close()
			return nil, NewUnavailableError("sqlite", "update", err)
		}
		if !matches(doc, filter) {
			continue
		}
		matched++
		for k, v := range patch {
			doc[k] = v
		}
		newBody, err := json.Marshal(doc)
		if err != nil {
			rows.Close()
			return nil, NewUnavailableError("sqlite", "update", err)
		}
		updates = append(updates, patched{seq: seq, body: string(newBody)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, NewUnavailableError("sqlite", "update", err)
	}

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			"UPDATE documents SET body = ? WHERE seq = ?", u.body, u.seq); err != nil {
			return nil, NewUnavailableError("sqlite", "update", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, NewUnavailableError("sqlite", "update", err)
	}
	return &UpdateResult{MatchedCount: matched}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
