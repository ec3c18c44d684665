package public

import (
	"encoding/json"
	"github.com/gorilla/websocket"
	"github.com/langowen/cryptoconvert/internal/entities"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type connection struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub pushes ticker updates to websocket subscribers. Subscribers that fall
// behind are disconnected.
type Hub struct {
	mu     sync.Mutex
	conns  map[*connection]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*connection]struct{})}
}

// Broadcast has the signature of an update callback so it can be chained
// into the price worker.
func (h *Hub) Broadcast(snapshot *entities.Snapshot, isFiat bool) {
	const op = "public.Hub.Broadcast"

	msg, err := json.Marshal(entities.Update{Fiat: isFiat, Ticker: snapshot})
	if err != nil {
		slog.Error("Failed to encode ticker update", "op", op, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		select {
		case c.send <- msg:
		default:
			slog.Warn("Stream subscriber too slow, dropping", "op", op, "remote_addr", c.ws.RemoteAddr().String())
			h.drop(c)
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Error upgrading to websockets", "error", err)
		return
	}

	c := &connection{ws: ws, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = ws.Close()
		return
	}

	go c.writer()
	c.reader()

	h.mu.Lock()
	h.drop(c)
	h.mu.Unlock()
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.conns {
		h.drop(c)
	}
}

func (h *Hub) register(c *connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

// drop must be called with mu held.
func (h *Hub) drop(c *connection) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.send)
}

// reader discards client messages and returns when the connection closes.
func (c *connection) reader() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *connection) writer() {
	defer c.ws.Close()

	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
