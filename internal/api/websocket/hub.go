package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/BG-Companion/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. game:state frames carry the
	// whole entity index.
	maxMessageSize = 4 << 20

	sendBuffer = 256
)

// Event represents a WebSocket event to be broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// HandlerFunc processes the data of an inbound message type.
type HandlerFunc func(data json.RawMessage) error

// Config configures a Hub.
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Entries may
	// use path.Match wildcards ("http://localhost:*"). Empty allows all.
	AllowedOrigins []string

	// RateLimit bounds inbound frames per second per client; 0 disables it.
	RateLimit float64
	Burst     int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Client represents a WebSocket client connection.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	subscription *ClientSubscription
	limiter      *rate.Limiter
}

type outbound struct {
	eventType string
	data      []byte
}

// Hub maintains the set of active clients, broadcasts events to them and
// routes their inbound messages to registered handlers.
type Hub struct {
	clients   map[*Client]bool
	broadcast chan outbound
	done      chan struct{}
	stopOnce  sync.Once
	stopped   bool
	mu        sync.RWMutex

	handlers   map[string]HandlerFunc
	handlersMu sync.RWMutex

	config   Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewHub creates a new Hub instance.
func NewHub(cfg Config) *Hub {
	h := &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan outbound, 64),
		done:      make(chan struct{}),
		handlers:  make(map[string]HandlerFunc),
		config:    cfg,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.logger = h.logger.Named("ws")
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// OriginAllowed reports whether origin matches one of allowed. An empty
// list, a "*" entry or a missing origin header allows the request.
func OriginAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, pattern := range allowed {
		if pattern == "*" || pattern == origin {
			return true
		}
		if ok, err := path.Match(pattern, origin); err == nil && ok {
			return true
		}
	}
	return false
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if OriginAllowed(h.config.AllowedOrigins, origin) {
		return true
	}
	h.metrics.Rejected("origin")
	h.logger.Warn("origin rejected", zap.String("origin", origin))
	return false
}

// Handle registers fn for inbound messages of msgType, replacing any
// earlier handler.
func (h *Hub) Handle(msgType string, fn HandlerFunc) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[msgType] = fn
}

func (h *Hub) handler(msgType string) (HandlerFunc, bool) {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	fn, ok := h.handlers[msgType]
	return fn, ok
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for client := range h.clients {
				if !client.subscription.IsSubscribed(msg.eventType) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.logger.Warn("dropping slow client", zap.String("event", msg.eventType))
				h.remove(client)
			}
		}
	}
}

// BroadcastEvent broadcasts an event to all subscribed clients.
// Returns false if the hub has been stopped or the event was dropped.
func (h *Hub) BroadcastEvent(event Event) bool {
	if h.IsStopped() {
		return false
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal event", zap.String("type", event.Type), zap.Error(err))
		return false
	}

	select {
	case h.broadcast <- outbound{eventType: event.Type, data: data}:
		return true
	case <-h.done:
		return false
	default:
		h.logger.Warn("broadcast queue full, dropping event", zap.String("type", event.Type))
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and cleans up all client connections.
// Safe to call multiple times - subsequent calls are no-ops.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// IsStopped returns true if the hub has been stopped.
func (h *Hub) IsStopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// ServeWs handles WebSocket requests from clients.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.IsStopped() {
		http.Error(w, "WebSocket hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		subscription: NewClientSubscription(),
	}
	if h.config.RateLimit > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(h.config.RateLimit), max(1, h.config.Burst))
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.ClientConnected(1)
	h.logger.Info("client connected", zap.Int("clients", count))

	client.reply("daemon:connected", map[string]any{
		"subscriptions": client.subscription.GetSubscriptions(),
	})

	go client.writePump()
	go client.readPump()
}

// remove unregisters client and closes its send channel.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.metrics.ClientConnected(-1)
		h.logger.Info("client disconnected", zap.Int("clients", count))
	}
}

// reply queues an event for this client only. It is dropped when the
// client is gone or its queue is full.
func (c *Client) reply(eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) replyError(err error) {
	c.reply("error", map[string]any{"error": err.Error()})
}

// clientMessage is an inbound frame.
type clientMessage struct {
	Type   string          `json:"type"`
	Events any             `json:"events,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

var (
	errRateLimited = errors.New("rate limited")
	errUnknownType = errors.New("unknown message type")
)

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("read error", zap.Error(err))
			}
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.hub.metrics.Rejected("rate_limit")
			c.replyError(errRateLimited)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.hub.metrics.Rejected("invalid")
			c.replyError(errors.New("malformed message"))
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg clientMessage) {
	switch msg.Type {
	case "ping":
		c.reply("pong", map[string]any{})

	case "subscribe":
		eventTypes := extractEventTypes(msg.Events)
		if len(eventTypes) == 0 {
			c.subscription.SubscribeAll()
		} else {
			c.subscription.Subscribe(eventTypes)
		}
		c.reply("subscription:updated", map[string]any{
			"action":        "subscribe",
			"subscriptions": c.subscription.GetSubscriptions(),
		})

	case "unsubscribe":
		if eventTypes := extractEventTypes(msg.Events); len(eventTypes) > 0 {
			c.subscription.Unsubscribe(eventTypes)
		}
		c.reply("subscription:updated", map[string]any{
			"action":        "unsubscribe",
			"subscriptions": c.subscription.GetSubscriptions(),
		})

	case "get_subscriptions":
		c.reply("subscription:list", map[string]any{
			"subscriptions": c.subscription.GetSubscriptions(),
		})

	default:
		fn, ok := c.hub.handler(msg.Type)
		if !ok {
			c.hub.metrics.Rejected("invalid")
			c.replyError(errUnknownType)
			return
		}
		if err := fn(msg.Data); err != nil {
			c.hub.metrics.Rejected("invalid")
			c.hub.logger.Debug("handler failed", zap.String("type", msg.Type), zap.Error(err))
			c.replyError(err)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// extractEventTypes extracts a slice of event type strings from a message field.
func extractEventTypes(events any) []string {
	switch v := events.(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	case string:
		return []string{v}
	}
	return nil
}
