package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PolySpade/multi-agent-routing-app-sub002/pkg/logging"
)

// Envelope wraps every server-to-client message.
type Envelope struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

const (
	wsWriteTimeout   = 10 * time.Second
	wsPongTimeout    = 60 * time.Second
	wsPingInterval   = 45 * time.Second
	wsSendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser dashboards connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected consumer. Slow clients are dropped rather than
// allowed to stall the broadcast path.
type wsClient struct {
	conn *websocket.Conn
	send chan Envelope

	// done closes exactly once when the client is removed; send stays open so
	// concurrent producers never hit a closed channel.
	done     chan struct{}
	doneOnce sync.Once
}

// Hub fans broadcast messages out to every connected WebSocket client. It
// implements sim.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	logger  logging.Logger
}

// NewHub creates an empty hub.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger.With(logging.Component("ws_hub")),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an enveloped message to every client. A client whose send
// buffer is full is disconnected.
func (h *Hub) Broadcast(msgType string, data any) {
	env := Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}

	h.mu.RLock()
	var stalled []*wsClient
	for c := range h.clients {
		select {
		case c.send <- env:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		h.logger.Warn("dropping stalled websocket client")
		h.remove(c)
	}
}

// HandleUpgrade upgrades the HTTP request and starts the client pumps.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan Envelope, wsSendBufferSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	client.send <- Envelope{
		Type:      "connection",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      map[string]any{"status": "connected"},
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.doneOnce.Do(func() { close(c.done) })
	c.conn.Close()
}

// readPump consumes client messages; "ping" text frames get a "pong" reply.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case c.send <- Envelope{
				Type:      "pong",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}:
			default:
			}
		}
	}
}

// writePump serializes all writes for one client.
func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteTimeout))
			return
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
