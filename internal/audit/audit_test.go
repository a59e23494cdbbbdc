package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "audit.db")
}

func TestOpenCreatesSchema(t *testing.T) {
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"sessions", "hook_runs"} {
		var count int
		err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestBeginAndFinishSession(t *testing.T) {
	ctx := context.Background()
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	id, err := db.BeginSession(ctx, "D", "G")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if id == 0 {
		t.Fatal("BeginSession returned id 0")
	}

	if err := db.RecordHookRun(ctx, id, HookRun{Phase: "commit", Revision: "E", Hook: "commit", ExitCode: 0, DurationMS: 5}); err != nil {
		t.Fatalf("RecordHookRun: %v", err)
	}

	if err := db.FinishSession(ctx, id, "completed"); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	sessions, err := db.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("RecentSessions returned %d rows, want 1", len(sessions))
	}
	got := sessions[0]
	if got.FromWorldID != "D" || got.ToWorldID != "G" || got.Outcome != "completed" {
		t.Errorf("session = %+v, want from=D to=G outcome=completed", got)
	}
	if got.HookCount != 1 {
		t.Errorf("HookCount = %d, want 1", got.HookCount)
	}
}

func TestRecentSessionsOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	first, err := db.BeginSession(ctx, "A", "B")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := db.FinishSession(ctx, first, "completed"); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	second, err := db.BeginSession(ctx, "B", "C")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := db.FinishSession(ctx, second, "completed"); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	sessions, err := db.RecentSessions(ctx, 1)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != second {
		t.Errorf("RecentSessions(1) = %+v, want the most recently begun session", sessions)
	}
}
