package websocket

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// Hub broadcasts executed fills to websocket subscribers. It implements
// orderbook.FillSink, so it can be wired directly into every market engine.
// Slow subscribers are dropped rather than allowed to stall the engine.
type Hub struct {
	mu             sync.RWMutex
	clients        map[*client]struct{}
	upgrader       websocket.Upgrader
	sendBufferSize int
	logger         *zap.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Config holds hub configuration.
type Config struct {
	SendBufferSize int
	Logger         *zap.Logger
}

// NewHub creates a hub with no subscribers.
func NewHub(cfg *Config) *Hub {
	bufSize := cfg.SendBufferSize
	if bufSize <= 0 {
		bufSize = 64
	}

	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBufferSize: bufSize,
		logger:         cfg.Logger,
	}
}

// FillEvent is the wire shape of a broadcast fill.
type FillEvent struct {
	EventType string     `json:"event_type"` // always "fill"
	Fill      types.Fill `json:"fill"`
}

// OnFill encodes and fans the fill out to every connected subscriber.
// Satisfies orderbook.FillSink.
func (h *Hub) OnFill(fill types.Fill) {
	payload, err := json.Marshal(FillEvent{EventType: "fill", Fill: fill})
	if err != nil {
		h.logger.Error("fill-encode-failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
			MessagesBroadcastTotal.Inc()
		default:
			// Buffer full: drop this message for the slow subscriber
			// instead of blocking the engine.
			SubscribersDroppedTotal.Inc()
			h.logger.Warn("subscriber-send-buffer-full")
		}
	}
}

// Handler upgrades an HTTP request to a websocket subscription.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket-upgrade-failed", zap.Error(err))
			return
		}

		c := &client{
			conn: conn,
			send: make(chan []byte, h.sendBufferSize),
		}

		h.mu.Lock()
		h.clients[c] = struct{}{}
		SubscribersConnected.Set(float64(len(h.clients)))
		h.mu.Unlock()

		h.logger.Info("websocket-subscriber-connected",
			zap.String("remote", conn.RemoteAddr().String()))

		go h.writeLoop(c)
		go h.readLoop(c)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	SubscribersConnected.Set(0)
	h.logger.Info("websocket-hub-closed")
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		SubscribersConnected.Set(float64(len(h.clients)))
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()

	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("websocket-write-failed", zap.Error(err))
			h.remove(c)
			return
		}
	}
}

// readLoop drains client frames so pings are handled; subscribers are
// read-only and any payload they send is discarded.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
