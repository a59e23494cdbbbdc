// Package audit persists a history of sync sessions and the individual
// hook invocations within them to an embedded SQLite database, backing
// `--status --history`. It runs entirely local to the repository; no
// network or cloud service is involved, despite the underlying driver's
// name.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the embedded SQLite connection used to record sync history.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the audit database at path, enabling WAL mode
// so a concurrent `--status --history` reader never blocks the walker's
// writes.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("audit: failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("audit: failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("audit: failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit: failed to set %q: %w", pragma, err)
		}
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "git-sync-world: warning: failed to checkpoint audit WAL: %v\n", err)
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

func (db *DB) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		from_world_id TEXT NOT NULL,
		to_world_id TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT 'in_progress'
	);

	CREATE TABLE IF NOT EXISTS hook_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		phase TEXT NOT NULL,
		revision TEXT NOT NULL,
		hook TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_hook_runs_session ON hook_runs(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: failed to initialize schema: %w", err)
	}
	return nil
}

// BeginSession records the start of a new sync session and returns its
// row id, to be passed to RecordHookRun and FinishSession.
func (db *DB) BeginSession(ctx context.Context, fromWorldID, toWorldID string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (started_at, from_world_id, to_world_id) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), fromWorldID, toWorldID)
	if err != nil {
		return 0, fmt.Errorf("audit: failed to begin session: %w", err)
	}
	return res.LastInsertId()
}

// FinishSession marks a session as completed with the given outcome
// ("completed", "aborted", or "failed").
func (db *DB) FinishSession(ctx context.Context, sessionID int64, outcome string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ?, outcome = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), outcome, sessionID)
	if err != nil {
		return fmt.Errorf("audit: failed to finish session %d: %w", sessionID, err)
	}
	return nil
}

// HookRun is a single recorded hook invocation.
type HookRun struct {
	Phase      string
	Revision   string
	Hook       string
	ExitCode   int
	DurationMS int64
}

// RecordHookRun appends a hook invocation to a session's audit trail.
func (db *DB) RecordHookRun(ctx context.Context, sessionID int64, run HookRun) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO hook_runs (session_id, occurred_at, phase, revision, hook, exit_code, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, time.Now().UTC().Format(time.RFC3339), run.Phase, run.Revision, run.Hook, run.ExitCode, run.DurationMS)
	if err != nil {
		return fmt.Errorf("audit: failed to record hook run: %w", err)
	}
	return nil
}

// SessionSummary is one row of sync history, as surfaced by `--status
// --history`.
type SessionSummary struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  *time.Time
	FromWorldID string
	ToWorldID   string
	Outcome     string
	HookCount   int
}

// RecentSessions returns the last n sessions, most recent first.
func (db *DB) RecentSessions(ctx context.Context, n int) ([]SessionSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, s.started_at, s.finished_at, s.from_world_id, s.to_world_id, s.outcome,
		       (SELECT COUNT(*) FROM hook_runs h WHERE h.session_id = s.id)
		FROM sessions s
		ORDER BY s.id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&s.ID, &startedAt, &finishedAt, &s.FromWorldID, &s.ToWorldID, &s.Outcome, &s.HookCount); err != nil {
			return nil, fmt.Errorf("audit: failed to scan session row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			s.StartedAt = t
		}
		if finishedAt.Valid {
			if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
				s.FinishedAt = &t
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: error iterating sessions: %w", err)
	}
	return out, nil
}
