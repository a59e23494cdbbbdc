package hooks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeHook(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write hook %s: %v", name, err)
	}
}

func TestExistsAndExecutable(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "commit", "exit 0")
	if err := os.WriteFile(filepath.Join(dir, "rollback"), []byte("exit 0\n"), 0644); err != nil {
		t.Fatalf("write non-exec hook: %v", err)
	}

	r := NewRunner(dir, dir)

	if !r.Exists(Commit) {
		t.Error("Exists(commit) = false, want true")
	}
	if !r.Executable(Commit) {
		t.Error("Executable(commit) = false, want true")
	}
	if !r.Exists(Rollback) {
		t.Error("Exists(rollback) = false, want true")
	}
	if r.Executable(Rollback) {
		t.Error("Executable(rollback) = true, want false (no executable bit)")
	}
	if r.Exists(VerifyCommit) {
		t.Error("Exists(verify-commit) = true, want false")
	}
}

func TestAnyChangeSpecificPresent(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(dir, dir)
	if r.AnyChangeSpecificPresent() {
		t.Fatal("expected no change-specific hooks in empty dir")
	}

	writeHook(t, dir, "rollback", "exit 0")
	if !r.AnyChangeSpecificPresent() {
		t.Fatal("expected rollback to count as change-specific")
	}
}

func TestAllPerRevisionExecutable(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(dir, dir)

	for _, n := range PerRevision {
		writeHook(t, dir, string(n), "exit 0")
	}
	if !r.AllPerRevisionExecutable() {
		t.Fatal("expected all five hooks to be complete")
	}

	if err := os.Remove(filepath.Join(dir, string(SetChangeID))); err != nil {
		t.Fatalf("remove set-change-id: %v", err)
	}
	if r.AllPerRevisionExecutable() {
		t.Fatal("expected incomplete set after removing set-change-id")
	}
}

func TestRunForwardsExitStatus(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "commit", "exit 7")
	r := NewRunner(dir, dir)

	err := r.Run(context.Background(), Commit)
	if err == nil {
		t.Fatal("expected non-nil error for non-zero exit")
	}
}

func TestCaptureTrimsOutput(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "get-change-id", "printf '  abc123  \\n\\n'")
	r := NewRunner(dir, dir)

	out, err := r.Capture(context.Background(), GetChangeID)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if out != "  abc123" {
		t.Errorf("Capture = %q, want %q", out, "  abc123")
	}
}

func TestSetDebugLogRecordsInvocation(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "commit", "exit 0")
	r := NewRunner(dir, dir)

	var buf bytes.Buffer
	r.SetDebugLog(&buf)

	if err := r.Run(context.Background(), Commit); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(buf.String(), "commit") || !strings.Contains(buf.String(), "status=ok") {
		t.Errorf("debug log = %q, want it to mention commit and status=ok", buf.String())
	}
}

func TestRunUsesRepoRootAsWorkingDirectory(t *testing.T) {
	hooksDir := t.TempDir()
	repoRoot := t.TempDir()
	writeHook(t, hooksDir, "commit", "pwd > "+filepath.Join(repoRoot, "pwd.txt"))

	r := NewRunner(hooksDir, repoRoot)
	if err := r.Run(context.Background(), Commit); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(repoRoot, "pwd.txt"))
	if err != nil {
		t.Fatalf("read pwd.txt: %v", err)
	}

	got := string(data)
	if len(got) == 0 {
		t.Fatal("pwd.txt empty")
	}

	wantDir, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		t.Fatalf("EvalSymlinks(repoRoot): %v", err)
	}
	gotDir, err := filepath.EvalSymlinks(strings.TrimSpace(got))
	if err != nil {
		t.Fatalf("EvalSymlinks(pwd output): %v", err)
	}
	if gotDir != wantDir {
		t.Errorf("hook working directory = %q, want %q", gotDir, wantDir)
	}
}
