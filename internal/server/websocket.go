package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/wxjsx/internal/build"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/logging"
	"github.com/conneroisu/wxjsx/internal/validation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer      = 256
	broadcastBuffer = 64
)

// Message types pushed to clients.
const (
	MessageConnected    = "connected"
	MessageBuildSuccess = "build_success"
	MessageBuildError   = "build_error"
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Document  string    `json:"document,omitempty"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Line      int       `json:"line,omitempty"`
	Column    int       `json:"column,omitempty"`
	CacheHit  bool      `json:"cache_hit,omitempty"`
	Documents int       `json:"documents,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newBuildMessage(result build.BuildResult) UpdateMessage {
	msg := UpdateMessage{
		Type:      MessageBuildSuccess,
		Output:    string(result.Output),
		CacheHit:  result.CacheHit,
		Timestamp: time.Now(),
	}
	if result.Document != nil {
		msg.Document = result.Document.Name
	}
	if result.Error != nil {
		msg.Type = MessageBuildError
		msg.Output = ""
		msg.Error = result.Error.Error()
		msg.Line, msg.Column, _ = errors.LocationOf(result.Error)
	}
	return msg
}

// Client represents a WebSocket client
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans broadcast messages out to the connected clients.
type Hub struct {
	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex
	register     chan *Client
	unregister   chan *Client
	broadcast    chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	logger       logging.Logger
}

// NewHub creates a hub. Run must be called for it to deliver messages.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("websocket"),
	}
}

// Run delivers messages until ctx is cancelled or Close is called.
func (h *Hub) Run(ctx context.Context) {
	defer h.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			select {
			case <-h.done:
				close(client.send)
			default:
				h.clients[client] = struct{}{}
			}
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "client connected", "clients", count)

		case client := <-h.unregister:
			h.clientsMutex.Lock()
			h.remove(client)
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.clientsMutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow clients are dropped rather than blocking the hub.
					h.remove(client)
				}
			}
			h.clientsMutex.Unlock()
		}
	}
}

// remove must be called with clientsMutex held. Closing send makes the
// client's writePump close the connection.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		// Closing send makes each writePump close its connection.
		h.clientsMutex.Lock()
		for client := range h.clients {
			close(client.send)
		}
		h.clients = make(map[*Client]struct{})
		h.clientsMutex.Unlock()
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Messages are dropped when the hub
// is stopped or its queue is full.
func (h *Hub) Broadcast(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "failed to marshal message", "type", msg.Type)
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), nil, "broadcast queue full, dropping message", "type", msg.Type)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if err := validation.ValidateOrigin(origin, s.cfg.Server.AllowedOrigins); err != nil {
		s.logger.Warn(r.Context(), err, "websocket origin rejected", "origin", origin)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The origin was checked against the configured list above.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  s.hub,
	}

	hello, _ := json.Marshal(UpdateMessage{
		Type:      MessageConnected,
		Documents: s.orch.Registry().Count(),
		Timestamp: time.Now(),
	})
	client.send <- hello

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump drains incoming frames so control frames are handled, and
// unregisters the client once the connection fails.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.hub.logger.Debug(ctx, "websocket read ended", "error", err.Error())
			}
			return
		}
	}
}

// writePump pumps messages to the websocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	status, reason := websocket.StatusNormalClosure, ""
	defer func() {
		ticker.Stop()
		c.conn.Close(status, reason)
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// The hub dropped this client or is shutting down.
				status, reason = websocket.StatusGoingAway, "server shutting down"
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.hub.logger.Debug(ctx, "websocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
