package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"debatehub/events"
)

const (
	// sendBuffer is the per-client event backlog. A client that falls this
	// far behind is evicted rather than allowed to slow publishers down.
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one WebSocket subscriber. Events flow through the buffered send
// channel and a dedicated writer goroutine, so publishing never touches the
// connection directly.
type client struct {
	conn *websocket.Conn
	send chan *events.Event
}

// room holds the clients watching one debate.
type room struct {
	mu      sync.Mutex
	clients map[*client]bool
}

// Hub pushes debate events to connected WebSocket clients. It implements
// events.Sink: Publish only performs a non-blocking channel send per client
// and evicts any client whose backlog is full, so a stalled peer can never
// hold up the debate's critical section.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

func (h *Hub) getRoom(debateID string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[debateID]
	if !ok && create {
		r = &room{clients: make(map[*client]bool)}
		h.rooms[debateID] = r
	}
	return r
}

// AttachHandler upgrades the request and subscribes the client to a debate's
// events. The client is read-only; inbound frames are discarded.
func (h *Hub) AttachHandler(c *gin.Context) {
	debateID := c.Query("debate")
	if debateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "debate parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	cl := &client{conn: conn, send: make(chan *events.Event, sendBuffer)}
	r := h.getRoom(debateID, true)
	r.mu.Lock()
	r.clients[cl] = true
	r.mu.Unlock()

	go h.writeLoop(debateID, r, cl)
	go h.readLoop(debateID, r, cl)
}

// remove unregisters the client, closing its send channel exactly once, and
// drops the room when it empties.
func (h *Hub) remove(debateID string, r *room, cl *client) {
	r.mu.Lock()
	if _, ok := r.clients[cl]; ok {
		delete(r.clients, cl)
		close(cl.send)
	}
	empty := len(r.clients) == 0
	r.mu.Unlock()
	cl.conn.Close()

	if empty {
		h.mu.Lock()
		if current, ok := h.rooms[debateID]; ok && current == r {
			delete(h.rooms, debateID)
		}
		h.mu.Unlock()
	}
}

// writeLoop drains the client's send channel onto the connection. Writes
// carry a deadline so a dead peer cannot hold the goroutine forever.
func (h *Hub) writeLoop(debateID string, r *room, cl *client) {
	for event := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteJSON(event); err != nil {
			break
		}
	}
	h.remove(debateID, r, cl)
}

// readLoop drains the connection until it closes, then unregisters it.
func (h *Hub) readLoop(debateID string, r *room, cl *client) {
	defer h.remove(debateID, r, cl)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish queues the event for every client watching the debate. A client
// with a full backlog is evicted on the spot; Publish itself never blocks.
func (h *Hub) Publish(debateID string, event *events.Event) {
	r := h.getRoom(debateID, false)
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for cl := range r.clients {
		select {
		case cl.send <- event:
		default:
			delete(r.clients, cl)
			close(cl.send)
			cl.conn.Close()
		}
	}
}
