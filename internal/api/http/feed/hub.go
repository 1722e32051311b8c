package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/logger"
)

const (
	// clientBuffer is the number of snapshots queued per client before drops.
	clientBuffer = 16
	// writeTimeout bounds a single websocket write.
	writeTimeout = 5 * time.Second
)

// Hub fans status snapshots out to websocket clients.
// It implements the controller observer interface.
type Hub struct {
	ctx      context.Context
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    domain.Snapshot
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan domain.Snapshot
}

// NewHub creates a hub whose initial snapshot is initial.
func NewHub(ctx context.Context, initial domain.Snapshot) *Hub {
	return &Hub{
		ctx: logger.WithName(ctx, "feed"),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
		clients: make(map[*client]struct{}),
		last:    initial,
	}
}

// FrameSampled is a no-op: the feed carries status changes only.
func (h *Hub) FrameSampled(float64) {}

// StateChanged queues s for every client. Slow clients miss updates.
func (h *Hub) StateChanged(s domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = s

	for c := range h.clients {
		select {
		case c.send <- s:
		default:
			logger.WarnKV(h.ctx, "Dropped status update for slow client", "remote", c.conn.RemoteAddr().String())
		}
	}
}

// Last returns the most recent snapshot.
func (h *Hub) Last() domain.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.last
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// ServeHTTP upgrades the request and streams snapshots until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(h.ctx, "Websocket upgrade failed", "error", err)
		return
	}

	c, ok := h.register(conn)
	if !ok {
		_ = conn.Close()
		return
	}

	logger.DebugKV(h.ctx, "Websocket client connected", "remote", conn.RemoteAddr().String())

	go c.writeLoop()

	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err = conn.NextReader(); err != nil {
			break
		}
	}

	h.unregister(c)
	_ = conn.Close()

	logger.DebugKV(h.ctx, "Websocket client disconnected", "remote", conn.RemoteAddr().String())
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) register(conn *websocket.Conn) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	c := &client{
		conn: conn,
		send: make(chan domain.Snapshot, clientBuffer),
	}

	c.send <- h.last
	h.clients[c] = struct{}{}

	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
}

func (c *client) writeLoop() {
	for s := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := c.conn.WriteJSON(s); err != nil {
			// Unblocks the read loop in ServeHTTP.
			_ = c.conn.Close()
			return
		}
	}
}
