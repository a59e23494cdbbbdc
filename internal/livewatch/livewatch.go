// Package livewatch watches the session directory for changes, powering
// `--status --watch`: a live tail of queue pop/push-front activity as a
// sync session drains, without polling.
package livewatch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventKind is the queue file a change was observed on.
type EventKind int

const (
	KindRollback EventKind = iota
	KindCommit
	KindOrigHead
	KindOther
)

func (k EventKind) String() string {
	switch k {
	case KindRollback:
		return "rollback"
	case KindCommit:
		return "commit"
	case KindOrigHead:
		return "ORIG_HEAD"
	default:
		return "other"
	}
}

// Event reports a single change observed under the session directory.
type Event struct {
	Kind EventKind
	Path string
}

// Watcher watches a single session directory, which is created and
// destroyed wholesale across a sync's lifetime rather than being a
// stable long-lived tree. The watch is added once, in Start; if the
// directory is removed and recreated afterwards, no further events
// arrive for it.
type Watcher struct {
	fsw        *fsnotify.Watcher
	sessionDir string

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// New builds a Watcher for sessionDir. The directory need not exist yet;
// see Start for what happens when it does not.
func New(sessionDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("livewatch: failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsw:        fsw,
		sessionDir: sessionDir,
		events:     make(chan Event, 32),
		errors:     make(chan error, 8),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching. If sessionDir does not exist yet, Start
// succeeds anyway, but the watch is not retried, so no queue-file events
// arrive even after the directory is created later.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("livewatch: already running")
	}

	_ = w.fsw.Add(w.sessionDir) // best-effort; directory may not exist yet

	w.running = true
	w.wg.Add(1)
	go w.loop()

	return nil
}

// Stop stops watching and closes the Events/Errors channels.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	if err := w.fsw.Close(); err != nil {
		return err
	}
	w.wg.Wait()

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of observed queue-file changes.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of fsnotify errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			kind := classify(ev.Name)
			select {
			case w.events <- Event{Kind: kind, Path: ev.Name}:
			case <-w.done:
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

func classify(path string) EventKind {
	base := path[strings.LastIndex(path, "/")+1:]
	switch base {
	case "rollback":
		return KindRollback
	case "commit":
		return KindCommit
	case "ORIG_HEAD":
		return KindOrigHead
	default:
		return KindOther
	}
}
