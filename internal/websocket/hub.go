package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"retail-backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Terminals authenticate with a token, not cookies, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Notice is the payload pushed to terminals. It only tells them to pull.
type Notice struct {
	Event   string     `json:"event"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
	At      time.Time  `json:"at"`
}

type envelope struct {
	storeID *uuid.UUID
	payload []byte
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	// store is nil for owners, who hear about every store.
	store *uuid.UUID
}

func (c *Client) wants(storeID *uuid.UUID) bool {
	if c.store == nil || storeID == nil {
		return true
	}
	return *c.store == *storeID
}

// Hub maintains the set of active clients and fans change notices out to them.
type Hub struct {
	clients    map[*Client]bool
	notices    chan envelope
	register   chan *Client
	unregister chan *Client
	// done is closed once Run returns; sends on register and unregister
	// must also watch it.
	done   chan struct{}
	logger *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		notices:    make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Notify queues a notice without blocking. When the queue is full the notice
// is dropped; terminals still catch up on their next pull.
func (h *Hub) Notify(event string, storeID *uuid.UUID) {
	payload, err := json.Marshal(Notice{Event: event, StoreID: storeID, At: time.Now().UTC()})
	if err != nil {
		h.logger.Error("failed to encode notice", zap.Error(err))
		return
	}
	select {
	case h.notices <- envelope{storeID: storeID, payload: payload}:
	default:
		h.logger.Warn("notice queue full, dropping notice", zap.String("event", event))
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client connected", zap.Int("clients", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("websocket client disconnected", zap.Int("clients", len(h.clients)))
			}
		case n := <-h.notices:
			for client := range h.clients {
				if !client.wants(n.storeID) {
					continue
				}
				select {
				case client.Send <- n.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// join hands the client to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection so close frames are noticed.
func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Info("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs upgrades an authenticated request. Browsers cannot set headers on
// websocket requests, so the token travels in the query string.
func ServeWs(hub *Hub, c *gin.Context, authenticate func(token string) (model.Scope, error)) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	scope, err := authenticate(tokenString)
	if err != nil {
		hub.logger.Info("websocket connection rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), store: scope.StoreFilter()}
	if !hub.join(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
