package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Aaditya-Golash/mcp-mongo-sdlc-governance/pkg/audit"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS actions (
	id                 TEXT PRIMARY KEY,
	kind               TEXT NOT NULL,
	rule_id            TEXT NOT NULL DEFAULT '',
	target_ref         TEXT NOT NULL DEFAULT '',
	payload            TEXT NOT NULL DEFAULT '{}',
	state              TEXT NOT NULL,
	created_at         TEXT NOT NULL,
	last_transition_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_state ON actions(state);
`

// OpenStateDB opens the SQLite database shared by the action store and the
// audit log, enabling WAL mode and a busy timeout. Keeping both tables in
// one database is what lets a state transition and its audit entry commit
// in a single transaction.
func OpenStateDB(path string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal on %q: %w", path, err)
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout on %q: %w", path, err)
	}
	return db, nil
}

// SQLiteStore persists actions in SQLite. Transition is a conditional
// UPDATE guarded by the current state; the guarded row count is the
// compare-and-set that guarantees at-most-one Executing winner across
// concurrent engine instances sharing the database.
type SQLiteStore struct {
	db     *sql.DB
	log    *audit.SQLiteLog
	logger *slog.Logger
}

// NewSQLiteStore initializes the actions schema on db and returns the
// store. The audit log must operate on the same database.
func NewSQLiteStore(db *sql.DB, log *audit.SQLiteLog) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("create actions schema: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		log:    log,
		logger: slog.Default().With("component", "approval.sqlite"),
	}, nil
}

// Create persists a new action and its Proposed audit entry in one
// transaction.
func (s *SQLiteStore) Create(ctx context.Context, action *Action, entry *audit.Entry) error {
	payload, err := json.Marshal(action.Payload)
	if err != nil {
		return fmt.Errorf("marshal action payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO actions (id, kind, rule_id, target_ref, payload, state, created_at, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID, string(action.Kind), action.RuleID, action.TargetRef, string(payload),
		string(action.State),
		action.CreatedAt.UTC().Format(time.RFC3339Nano),
		action.LastTransitionAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert action %s: %w", action.ID, err)
	}
	if err := s.log.AppendTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the action with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Action, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, rule_id, target_ref, payload, state, created_at, last_transition_at
		FROM actions WHERE id = ?`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ActionID: id}
	}
	return action, err
}

// List returns actions matching the filter ordered by creation time.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]*Action, error) {
	where := "1=1"
	var args []any
	if filter.State != "" {
		where += " AND state = ?"
		args = append(args, string(filter.State))
	}
	if filter.RuleID != "" {
		where += " AND rule_id = ?"
		args = append(args, filter.RuleID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, rule_id, target_ref, payload, state, created_at, last_transition_at
		FROM actions WHERE `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []*Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, rows.Err()
}

// Transition performs the guarded UPDATE and audit append in one
// transaction. A zero row count means the action was not in `from`; the
// actual state is loaded for the error and nothing is written.
func (s *SQLiteStore) Transition(ctx context.Context, id string, from, to State, entry *audit.Entry) (*Action, error) {
	transitionAt := time.Now().UTC()
	if entry != nil {
		if entry.Timestamp.IsZero() {
			entry.Timestamp = transitionAt
		}
		transitionAt = entry.Timestamp
	}
	if !CanTransition(from, to) {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{ActionID: id, From: current.State, To: to}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE actions SET state = ?, last_transition_at = ? WHERE id = ? AND state = ?`,
		string(to), transitionAt.Format(time.RFC3339Nano), id, string(from))
	if err != nil {
		return nil, fmt.Errorf("transition action %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition action %s: %w", id, err)
	}
	if affected == 0 {
		// Lost the CAS. Report the actual state without writing anything.
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{ActionID: id, From: current.State, To: to}
	}

	if entry != nil {
		if err := s.log.AppendTx(ctx, tx, entry); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition for %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Close implements Store. The shared database handle is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*Action, error) {
	var a Action
	var kind, payload, state, createdAt, lastTransition string
	err := row.Scan(&a.ID, &kind, &a.RuleID, &a.TargetRef, &payload, &state, &createdAt, &lastTransition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan action: %w", err)
	}
	a.Kind = Kind(kind)
	a.State = State(state)
	if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal action payload: %w", err)
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.LastTransitionAt, err = time.Parse(time.RFC3339Nano, lastTransition); err != nil {
		return nil, fmt.Errorf("parse last_transition_at: %w", err)
	}
	return &a, nil
}
