package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/syncworld/sync-world/internal/hooks"
	"github.com/syncworld/sync-world/internal/vcsadapter"
	"github.com/syncworld/sync-world/internal/vcsadapter/vcsadaptertest"
)

type collectingReporter struct {
	lines []string
}

func (c *collectingReporter) Report(msg string) { c.lines = append(c.lines, msg) }

func writeHook(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write hook %s: %v", name, err)
	}
}

func writeAllFiveHooks(t *testing.T, dir string) {
	t.Helper()
	for _, n := range hooks.PerRevision {
		writeHook(t, dir, string(n), "exit 0")
	}
}

func TestStepNoopRevision(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "")
	f.AddCommit("B", "A")

	rep := &collectingReporter{}
	err := Step(context.Background(), f, hk, rep, PhaseCommit, "B")
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(rep.lines) != 1 || rep.lines[0] != "nothing to do at B" {
		t.Errorf("reporter lines = %v, want noop message", rep.lines)
	}
}

func TestStepCommitSuccess(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	writeAllFiveHooks(t, hooksDir)
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "")
	f.AddCommit("B", "A")

	rep := &collectingReporter{}
	if err := Step(context.Background(), f, hk, rep, PhaseCommit, "B"); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(rep.lines) != 1 || rep.lines[0] != "Applied commit at B" {
		t.Errorf("reporter lines = %v", rep.lines)
	}
}

func TestStepCommitHookFailure(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	writeAllFiveHooks(t, hooksDir)
	writeHook(t, hooksDir, "commit", "exit 1")
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "")
	f.AddCommit("B", "A")

	err := Step(context.Background(), f, hk, &collectingReporter{}, PhaseCommit, "B")
	if err == nil {
		t.Fatal("expected walk error on commit hook failure")
	}
}

func TestStepIncompleteHookSetFails(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	// Only rollback present: triggers the completeness rule (P6).
	writeHook(t, hooksDir, "rollback", "exit 0")
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "")
	f.AddCommit("B", "A")

	err := Step(context.Background(), f, hk, &collectingReporter{}, PhaseRollback, "B")
	if err == nil {
		t.Fatal("expected walk error for incomplete hook set")
	}
}

func TestStepRollbackAtRootSetsEmptySentinel(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	writeAllFiveHooks(t, hooksDir)

	captured := filepath.Join(repoRoot, "set-change-id-arg.txt")
	writeHook(t, hooksDir, "set-change-id", `printf '%s' "$1" > `+captured)
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "") // A is the root commit

	rep := &collectingReporter{}
	if err := Step(context.Background(), f, hk, rep, PhaseRollback, "A"); err != nil {
		t.Fatalf("Step: %v", err)
	}

	data, err := os.ReadFile(captured)
	if err != nil {
		t.Fatalf("read captured arg: %v", err)
	}
	if string(data) != "" {
		t.Errorf("set-change-id arg at root rollback = %q, want empty string", string(data))
	}
}

func TestStepRollbackCheckoutFailureTreatedAsSuccess(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	writeAllFiveHooks(t, hooksDir)
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "")
	f.AddCommit("B", "A")
	f.FailCheckout["A"] = true // HEAD^ checkout from B to A fails

	err := Step(context.Background(), f, hk, &collectingReporter{}, PhaseRollback, "B")
	if err != nil {
		t.Fatalf("Step: expected success despite checkout failure, got %v", err)
	}
}

func TestStepCheckoutFailurePushesBack(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	writeAllFiveHooks(t, hooksDir)
	hk := hooks.NewRunner(hooksDir, repoRoot)

	f := vcsadaptertest.New()
	f.AddCommit("A", "")
	f.AddCommit("B", "A")
	f.FailCheckout["B"] = true

	err := Step(context.Background(), f, hk, &collectingReporter{}, PhaseCommit, "B")
	if err == nil {
		t.Fatal("expected walk error when checkout of the revision itself fails")
	}
}

var _ vcsadapter.VCS = vcsadaptertest.New()
