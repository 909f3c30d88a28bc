package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"debatehub/events"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	router.GET("/ws", hub.AttachHandler)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, server
}

func dialDebate(t *testing.T, server *httptest.Server, debateID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?debate=" + debateID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForClients polls until the debate's room holds want clients. The
// handler registers the client after the upgrade handshake, so a freshly
// dialed connection may not be visible immediately.
func waitForClients(t *testing.T, hub *Hub, debateID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r := hub.getRoom(debateID, false)
		count := 0
		if r != nil {
			r.mu.Lock()
			count = len(r.clients)
			r.mu.Unlock()
		}
		if count == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Room %s never reached %d clients", debateID, want)
}

func mustEvent(t *testing.T, eventType string, payload interface{}) *events.Event {
	t.Helper()
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return event
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub, server := newHubServer(t)
	conn := dialDebate(t, server, "d1")
	waitForClients(t, hub, "d1", 1)

	published := mustEvent(t, events.TypeMessageAppended, events.MessagePayload{
		MessageID: "m1",
		DebateID:  "d1",
		UserID:    "u1",
		Content:   "hello",
		Seq:       1,
	})
	hub.Publish("d1", published)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received events.Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if received.Type != events.TypeMessageAppended {
		t.Errorf("Expected type %s, got %s", events.TypeMessageAppended, received.Type)
	}
	var payload events.MessagePayload
	if err := json.Unmarshal(received.Payload, &payload); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if payload.MessageID != "m1" {
		t.Errorf("Expected message m1, got %s", payload.MessageID)
	}
}

func TestHubPublishNeverBlocksOnStalledClient(t *testing.T) {
	hub, server := newHubServer(t)
	dialDebate(t, server, "d1") // connects but never reads
	waitForClients(t, hub, "d1", 1)

	event := mustEvent(t, events.TypeMessageAppended, events.MessagePayload{DebateID: "d1"})

	// Flood far past the per-client backlog. Publish must return promptly
	// every time, evicting the stalled client instead of waiting on it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer*10; i++ {
			hub.Publish("d1", event)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled client")
	}
}

func TestHubPublishWithoutSubscribersIsNoOp(t *testing.T) {
	hub := NewHub()
	event := mustEvent(t, events.TypeDebateStarted, events.DebatePayload{DebateID: "d1"})
	hub.Publish("d1", event) // must not panic or create a room

	if r := hub.getRoom("d1", false); r != nil {
		t.Error("Publish must not create rooms")
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, server := newHubServer(t)
	conn := dialDebate(t, server, "d1")
	waitForClients(t, hub, "d1", 1)

	conn.Close()
	waitForClients(t, hub, "d1", 0)

	// The emptied room is dropped entirely.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.getRoom("d1", false) == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Empty room was not removed")
}
