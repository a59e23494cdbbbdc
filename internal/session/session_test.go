package session

import (
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "git-sync-world")
	s := New(dir)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return s
}

func TestExistsReflectsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "git-sync-world")
	s := New(dir)
	if s.Exists() {
		t.Fatal("Exists() = true before Begin")
	}
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !s.Exists() {
		t.Fatal("Exists() = false after Begin")
	}
}

func TestOriginalHeadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveOriginalHead("main"); err != nil {
		t.Fatalf("SaveOriginalHead: %v", err)
	}
	got, err := s.LoadOriginalHead()
	if err != nil {
		t.Fatalf("LoadOriginalHead: %v", err)
	}
	if got != "main" {
		t.Errorf("LoadOriginalHead = %q, want %q", got, "main")
	}
}

func TestWriteAndReadQueue(t *testing.T) {
	s := newTestStore(t)
	want := []string{"g", "f", "e"}
	if err := s.WriteQueue(Rollback, want); err != nil {
		t.Fatalf("WriteQueue: %v", err)
	}
	got, err := s.ReadQueue(Rollback)
	if err != nil {
		t.Fatalf("ReadQueue: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadQueue = %v, want %v", got, want)
	}
}

func TestReadQueueMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.ReadQueue(Commit)
	if err != nil {
		t.Fatalf("ReadQueue: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadQueue on missing file = %v, want empty", got)
	}
}

func TestPopFrontDrainsInOrder(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteQueue(Commit, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("WriteQueue: %v", err)
	}

	for _, want := range []string{"a", "b", "c"} {
		rev, ok, err := s.PopFront(Commit)
		if err != nil {
			t.Fatalf("PopFront: %v", err)
		}
		if !ok || rev != want {
			t.Fatalf("PopFront = (%q, %v), want (%q, true)", rev, ok, want)
		}
	}

	rev, ok, err := s.PopFront(Commit)
	if err != nil {
		t.Fatalf("PopFront on empty: %v", err)
	}
	if ok {
		t.Fatalf("PopFront on empty queue returned ok=true, rev=%q", rev)
	}
}

// TestPushFrontRestoresFailingRevision exercises P3 (resumability): a
// revision pushed back to the front of its queue is the one a later
// PopFront returns first.
func TestPushFrontRestoresFailingRevision(t *testing.T) {
	s := newTestStore(t)
	if err := s.WriteQueue(Rollback, []string{"f", "e"}); err != nil {
		t.Fatalf("WriteQueue: %v", err)
	}

	rev, ok, err := s.PopFront(Rollback)
	if err != nil || !ok || rev != "f" {
		t.Fatalf("PopFront = (%q, %v, %v), want (f, true, nil)", rev, ok, err)
	}

	// Simulate a walk error: restore the failing revision to the front.
	if err := s.PushFront(Rollback, "f"); err != nil {
		t.Fatalf("PushFront: %v", err)
	}

	got, err := s.ReadQueue(Rollback)
	if err != nil {
		t.Fatalf("ReadQueue: %v", err)
	}
	want := []string{"f", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadQueue after push-back = %v, want %v", got, want)
	}
}

func TestAuditSessionIDRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, ok, err := s.LoadAuditSessionID(); err != nil || ok {
		t.Fatalf("LoadAuditSessionID before save = (_, %v, %v), want (_, false, nil)", ok, err)
	}

	if err := s.SaveAuditSessionID(42); err != nil {
		t.Fatalf("SaveAuditSessionID: %v", err)
	}

	id, ok, err := s.LoadAuditSessionID()
	if err != nil {
		t.Fatalf("LoadAuditSessionID: %v", err)
	}
	if !ok || id != 42 {
		t.Errorf("LoadAuditSessionID = (%d, %v), want (42, true)", id, ok)
	}
}

func TestDestroyRemovesSessionDirectory(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveOriginalHead("main"); err != nil {
		t.Fatalf("SaveOriginalHead: %v", err)
	}
	if err := s.WriteQueue(Rollback, []string{"a"}); err != nil {
		t.Fatalf("WriteQueue: %v", err)
	}

	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if s.Exists() {
		t.Fatal("session directory still exists after Destroy")
	}
}
