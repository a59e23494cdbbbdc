package livewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClassifyRecognizesQueueFiles(t *testing.T) {
	cases := map[string]EventKind{
		"/a/b/rollback":  KindRollback,
		"/a/b/commit":    KindCommit,
		"/a/b/ORIG_HEAD": KindOrigHead,
		"/a/b/other":     KindOther,
	}
	for path, want := range cases {
		if got := classify(path); got != want {
			t.Errorf("classify(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherObservesQueueFileWrite(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "rollback")
	if err := os.WriteFile(path, []byte("g\nf\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Kind != KindRollback {
			t.Errorf("event kind = %v, want %v", ev.Kind, KindRollback)
		}
	case err := <-w.Errors():
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a rollback file event")
	}
}

func TestStopClosesChannels(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, ok := <-w.Events(); ok {
		t.Error("Events() channel still open after Stop")
	}
	if _, ok := <-w.Errors(); ok {
		t.Error("Errors() channel still open after Stop")
	}
}
