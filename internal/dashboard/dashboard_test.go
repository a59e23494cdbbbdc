package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(Config{Addr: "127.0.0.1:0", Logger: log.New(os.Stderr, "[test] ", log.LstdFlags)})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestServerStartStop(t *testing.T) {
	s := newTestServer(t)
	if s.Addr() == "" {
		t.Fatal("Addr() is empty after Start")
	}
}

func TestWebSocketConnectionIsTracked(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Connection registration happens on its own goroutine; give it a
	// moment before asserting.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.ClientCount() == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if count := s.ClientCount(); count != 1 {
		t.Errorf("ClientCount() = %d, want 1", count)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.Broadcast(Event{Type: EventStep, Phase: "commit", Revision: "E", Remaining: 2})

	readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readCancel()
	_, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.Type != EventStep || ev.Phase != "commit" || ev.Revision != "E" {
		t.Errorf("event = %+v, want Type=step Phase=commit Revision=E", ev)
	}
}
