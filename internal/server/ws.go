package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fabriziosardo/AR-Project/internal/server/api"
	"github.com/fabriziosardo/AR-Project/internal/tracking"
)

const (
	// SnapshotInterval is how often connected clients receive the entity
	// snapshot.
	SnapshotInterval = 100 * time.Millisecond
	writeWait        = time.Second
	maxMessageSize   = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Publisher accepts decoded tracking batches. *tracking.ChannelSource
// implements it.
type Publisher interface {
	Publish(tracking.Batch)
}

// Message is what the server sends on the tracking socket.
type Message struct {
	Type      string               `json:"type"`
	Entities  []api.EntityResponse `json:"entities,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// TrackingHandler is the device side of the guide. Clients send one
// tracking.WireBatch per message; every client receives entity snapshots.
type TrackingHandler struct {
	ingest Publisher
	source api.Snapshotter
	log    zerolog.Logger

	clients map[*client]bool
	mu      sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTrackingHandler creates a TrackingHandler and starts its snapshot
// broadcast.
func NewTrackingHandler(ingest Publisher, source api.Snapshotter, logger zerolog.Logger) *TrackingHandler {
	h := &TrackingHandler{
		ingest:  ingest,
		source:  source,
		log:     logger,
		clients: make(map[*client]bool),
		stop:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	log := h.log.With().Str("source", r.RemoteAddr).Logger()
	log.Info().Msg("tracking client connected")

	msg, err := h.snapshot()
	if err != nil {
		log.Debug().Err(err).Msg("failed to encode initial snapshot")
	} else if err := c.write(msg); err != nil {
		log.Debug().Err(err).Msg("failed to send initial snapshot")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("tracking client read failed")
			}
			break
		}

		var wb tracking.WireBatch
		if err := json.Unmarshal(data, &wb); err != nil {
			h.reject(c, "invalid batch: "+err.Error())
			continue
		}
		batch, err := wb.Decode()
		if err != nil {
			h.reject(c, "invalid batch: "+err.Error())
			continue
		}
		h.ingest.Publish(batch)
	}

	log.Info().Msg("tracking client disconnected")
}

// reject reports a malformed message. The connection stays open.
func (h *TrackingHandler) reject(c *client, reason string) {
	h.log.Debug().Str("reason", reason).Msg("tracking batch rejected")
	msg, err := json.Marshal(Message{Type: "error", Error: reason, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		h.log.Debug().Err(err).Msg("failed to encode rejection")
		return
	}
	if err := c.write(msg); err != nil {
		h.log.Debug().Err(err).Msg("failed to send rejection")
	}
}

func (h *TrackingHandler) snapshot() ([]byte, error) {
	return json.Marshal(Message{
		Type:      "snapshot",
		Entities:  api.EntityResponses(h.source.Snapshot()),
		Timestamp: time.Now().UnixMilli(),
	})
}

// broadcast sends the entity snapshot to all connected clients.
func (h *TrackingHandler) broadcast() {
	ticker := time.NewTicker(SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		clients := make([]*client, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.RUnlock()

		msg, err := h.snapshot()
		if err != nil {
			h.log.Error().Err(err).Msg("failed to encode snapshot")
			continue
		}
		for _, c := range clients {
			if err := c.write(msg); err != nil {
				h.log.Debug().Err(err).Msg("failed to send snapshot, closing client")
				// The read loop notices the closed connection and
				// unregisters the client.
				c.conn.Close()
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *TrackingHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the snapshot broadcast.
func (h *TrackingHandler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}
