package preview

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/conneroisu/autotemplar/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client represents a WebSocket client
type Client struct {
	conn *websocket.Conn
	send chan UpdateMessage
	hub  *Hub
}

// Hub fans block updates out to every connected browser.
type Hub struct {
	logger logging.Logger

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan UpdateMessage
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}
	doneOnce     sync.Once
}

// NewHub creates a hub. Run must be called for it to deliver messages.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:     logger.WithComponent("websocket_hub"),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan UpdateMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Messages are dropped when the
// queue is full.
func (h *Hub) Broadcast(msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn(context.Background(), nil, "Broadcast queue full, dropping update", "target", msg.Target)
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan UpdateMessage, 16),
		hub:  h,
	}

	go client.writePump()
	go client.readPump()

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// Run delivers messages until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "Client connected", "clients", count)

		case conn := <-h.unregister:
			h.clientsMutex.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(client.send)
			}
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "Client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.clientsMutex.Lock()
			for conn, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full
					delete(h.clients, conn)
					close(client.send)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.doneOnce.Do(func() { close(h.done) })
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	for conn, client := range h.clients {
		delete(h.clients, conn)
		close(client.send)
	}
}

// readPump drains the connection so control frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c.conn:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, _, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.hub.logger.Debug(context.Background(), "WebSocket read ended", "error", err.Error())
			}
			return
		}
	}
}

// writePump sends queued messages and periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := wsjson.Write(ctx, c.conn, message)
			cancel()
			if err != nil {
				c.hub.logger.Debug(context.Background(), "WebSocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
