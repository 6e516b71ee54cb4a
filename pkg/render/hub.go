package render

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chazu/molsurf/pkg/logging"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
)

// Message types sent to viewers.
const (
	MessageUpload  = "upload"
	MessageDestroy = "destroy"
)

// Message is one update sent to viewers.
type Message struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Shape *Shape `json:"shape,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub is a Renderer that streams shapes to websocket viewers. A viewer
// that connects receives every live shape, then each later update. Run
// must be running for messages to be delivered.
type Hub struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	shapes map[string]*Shape

	clients    map[*client]bool
	nclients   atomic.Int32
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub returns a Hub accepting connections from any origin.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		shapes:     make(map[string]*Shape),
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run delivers messages until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	log := logging.Logger()
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.nclients.Store(int32(len(h.clients)))
			for _, msg := range h.snapshot() {
				h.deliver(c, msg)
			}
			log.Debug("viewer connected", "remote", c.conn.RemoteAddr().String(), "viewers", len(h.clients))

		case c := <-h.unregister:
			h.drop(c)
			log.Debug("viewer disconnected", "viewers", len(h.clients))

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.deliver(c, msg)
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			close(h.done)
			return
		}
	}
}

// deliver queues msg for c, dropping c when its buffer is full.
func (h *Hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		logging.Logger().Warn("viewer too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.nclients.Store(int32(len(h.clients)))
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	return int(h.nclients.Load())
}

func (h *Hub) snapshot() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, 0, len(h.shapes))
	for id, s := range h.shapes {
		msg, err := json.Marshal(Message{Type: MessageUpload, ID: id, Shape: s})
		if err != nil {
			logging.Logger().Warn("encoding shape failed", "id", id, "error", err)
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Upload stores s and sends it to every viewer.
func (h *Hub) Upload(ctx context.Context, s *Shape) error {
	c := s.Clone()
	h.mu.Lock()
	h.shapes[c.ID] = c
	h.mu.Unlock()
	return h.send(ctx, Message{Type: MessageUpload, ID: c.ID, Shape: c})
}

// Destroy forgets id and tells every viewer to remove it.
func (h *Hub) Destroy(ctx context.Context, id string) error {
	h.mu.Lock()
	delete(h.shapes, id)
	h.mu.Unlock()
	return h.send(ctx, Message{Type: MessageDestroy, ID: id})
}

func (h *Hub) send(ctx context.Context, m Message) error {
	msg, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding %s message: %w", m.Type, err)
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request to a websocket viewer connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger().Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump discards viewer input and keeps the read deadline fresh. It
// unregisters the client when the connection ends.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Logger().Warn("websocket read failed", "error", err)
			}
			return
		}
	}
}

// writePump sends queued messages, one per frame, and pings the viewer.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logging.Logger().Warn("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
