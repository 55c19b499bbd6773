package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gyaneshwarpardhi/caseflow/internal/event"
)

// waitFor polls a condition until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("timeout waiting for: %s", msg)
}

func dialEvents(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var e event.Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	return e
}

func TestWebSocketReplaysRecentEvents(t *testing.T) {
	h, bus := newTestHandler(t)
	for i := 0; i < 5; i++ {
		bus.Publish(event.New(event.NodeUpdated, "editor", "case_1", map[string]interface{}{"i": i}))
	}

	server := httptest.NewServer(h)
	defer server.Close()
	conn := dialEvents(t, server)
	defer conn.Close()

	for i := 0; i < 5; i++ {
		if e := readEvent(t, conn); e.Type != event.NodeUpdated {
			t.Errorf("expected %s, got %s", event.NodeUpdated, e.Type)
		}
	}
}

func TestWebSocketStreamsEditorEvents(t *testing.T) {
	h, bus := newTestHandler(t)
	server := httptest.NewServer(h)
	defer server.Close()
	conn := dialEvents(t, server)
	defer conn.Close()

	waitFor(t, 2*time.Second, func() bool { return bus.SubscriberCount() == 1 }, "websocket subscription")

	createCase(t, h)

	seen := map[event.Type]bool{}
	for !seen[event.SelectionChanged] {
		seen[readEvent(t, conn).Type] = true
	}
	if !seen[event.NodeAdded] {
		t.Errorf("expected node_added before selection_changed, got %v", seen)
	}

	conn.Close()
	waitFor(t, 2*time.Second, func() bool { return bus.SubscriberCount() == 0 }, "unsubscribe on close")
}
