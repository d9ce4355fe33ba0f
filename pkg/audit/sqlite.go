package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	entry_id     TEXT PRIMARY KEY,
	actor_id     TEXT NOT NULL,
	action_id    TEXT NOT NULL DEFAULT '',
	event_type   TEXT NOT NULL,
	before_state TEXT NOT NULL DEFAULT '',
	after_state  TEXT NOT NULL DEFAULT '',
	entity_refs  TEXT NOT NULL DEFAULT '[]',
	timestamp    TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_entries(action_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
`

// SQLiteLog persists audit entries in SQLite. The schema carries no UPDATE
// or DELETE path; appends are single INSERTs and therefore atomic.
//
// The log operates on a caller-provided *sql.DB so the approval store can
// share the database and append entries inside its state transition
// transactions.
type SQLiteLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteLog initializes the audit schema on db and returns the log.
func NewSQLiteLog(db *sql.DB) (*SQLiteLog, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, NewStorageError("sqlite", "create_schema", err)
	}
	return &SQLiteLog{
		db:     db,
		logger: slog.Default().With("component", "audit.sqlite"),
	}, nil
}

// Append records an entry.
func (l *SQLiteLog) Append(ctx context.Context, entry *Entry) error {
	return l.append(ctx, l.db, entry)
}

// AppendTx records an entry inside an existing transaction. Used by the
// approval store to pair the audit write with a state transition.
func (l *SQLiteLog) AppendTx(ctx context.Context, tx *sql.Tx, entry *Entry) error {
	return l.append(ctx, tx, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (l *SQLiteLog) append(ctx context.Context, db execer, entry *Entry) error {
	if entry.EntryID == "" {
		entry.EntryID = NewEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	refs, err := json.Marshal(entry.EntityRefs)
	if err != nil {
		return NewStorageError("sqlite", "append", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(entry_id, actor_id, action_id, event_type, before_state, after_state, entity_refs, timestamp, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.ActorID, entry.ActionID, string(entry.EventType),
		entry.BeforeState, entry.AfterState, string(refs),
		entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.Detail)
	if err != nil {
		return NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Query returns matching entries ordered by timestamp then entry ID.
// Timestamps are stored as fixed-width UTC RFC3339 strings, so the SQL
// ordering is chronological.
func (l *SQLiteLog) Query(ctx context.Context, q *Query) ([]*Entry, error) {
	if q == nil {
		q = &Query{}
	}

	where := "1=1"
	var args []any
	if q.ActionID != "" {
		where += " AND action_id = ?"
		args = append(args, q.ActionID)
	}
	if q.EventType != "" {
		where += " AND event_type = ?"
		args = append(args, string(q.EventType))
	}
	if q.StartTime != nil {
		where += " AND timestamp >= ?"
		args = append(args, q.StartTime.UTC().Format(time.RFC3339Nano))
	}
	if q.EndTime != nil {
		where += " AND timestamp <= ?"
		args = append(args, q.EndTime.UTC().Format(time.RFC3339Nano))
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT entry_id, actor_id, action_id, event_type, before_state, after_state, entity_refs, timestamp, detail
		FROM audit_entries WHERE `+where+`
		ORDER BY timestamp ASC, entry_id ASC`, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var eventType, refs, ts string
		if err := rows.Scan(&e.EntryID, &e.ActorID, &e.ActionID, &eventType,
			&e.BeforeState, &e.AfterState, &refs, &ts, &e.Detail); err != nil {
			return nil, NewStorageError("sqlite", "query", err)
		}
		e.EventType = EventType(eventType)
		if err := json.Unmarshal([]byte(refs), &e.EntityRefs); err != nil {
			return nil, NewStorageError("sqlite", "query", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, NewStorageError("sqlite", "query", err)
		}

		// EntityRef filtering happens in-process; refs are stored as JSON.
		if q.EntityRef != "" && !q.Match(&e) {
			continue
		}
		out = append(out, &e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return out, nil
}

// Close implements Log. The shared database handle is owned by the caller.
func (l *SQLiteLog) Close() error {
	return nil
}
