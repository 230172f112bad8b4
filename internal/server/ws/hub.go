// Package ws bridges the Redis event bus to WebSocket subscribers and accepts
// remote commands that mutate trading state: order placement, cancellation,
// the auto-execute toggle, and on-demand monitoring passes.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/infinityai/tradebot/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// defaultChannels are the event-bus channels the hub forwards to clients.
var defaultChannels = []string{
	"signals",
	"orders",
	"positions",
	"status",
}

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for the REST surface is enforced by middleware; the WS
		// endpoint accepts any origin and relies on the API key.
		return true
	},
}

// OrderCommander places and cancels orders on behalf of socket clients.
type OrderCommander interface {
	PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderResult, error)
	CancelOrder(ctx context.Context, name domain.BrokerName, orderID string) (domain.OrderResult, error)
}

// TrackerCommander runs monitoring passes and reports statistics.
type TrackerCommander interface {
	MonitorPositions(ctx context.Context, price *float64) domain.TrackerStats
	Stats() domain.TrackerStats
}

// AutoToggler flips signal auto-execution on and off.
type AutoToggler interface {
	SetAutoExecute(on bool)
	AutoExecute() bool
}

// client represents a single WebSocket connection.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool // subscribed channels
	mu   sync.RWMutex
}

// command is the JSON frame a client sends. Subscribe/unsubscribe manage the
// client's channel set; the remaining actions mutate trading state and get an
// individual reply keyed by the client-chosen request id.
type command struct {
	Action    string   `json:"action"`
	RequestID string   `json:"request_id,omitempty"`
	Channels  []string `json:"channels,omitempty"`

	// place_order fields
	Broker   string  `json:"broker,omitempty"`
	Symbol   string  `json:"symbol,omitempty"`
	Side     string  `json:"side,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`

	// cancel_order field
	OrderID string `json:"order_id,omitempty"`

	// set_auto_execute field
	Enabled *bool `json:"enabled,omitempty"`

	// monitor_now field; nil means fetch a live quote
	MonitorPrice *float64 `json:"monitor_price,omitempty"`
}

// broadcastMsg carries a message along with its source channel so the hub
// can route it only to clients subscribed to that channel.
type broadcastMsg struct {
	channel string
	data    []byte
}

// Config captures the runtime metadata included in the status frame sent to
// each client on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// Hub manages the connected WebSocket clients, forwards event-bus messages to
// subscribers, and dispatches client commands to the trading services.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex

	bus     domain.EventBus
	orders  OrderCommander
	tracker TrackerCommander
	auto    AutoToggler // optional

	mode      string
	startedAt time.Time
	logger    *slog.Logger
}

// NewHub creates a hub bridging the event bus to WebSocket clients. The auto
// toggler may be nil in modes without a signal runner.
func NewHub(bus domain.EventBus, orders OrderCommander, tracker TrackerCommander, auto AutoToggler, cfg Config, logger *slog.Logger) *Hub {
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		orders:     orders,
		tracker:    tracker,
		auto:       auto,
		mode:       cfg.Mode,
		startedAt:  startedAt,
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
}

// Run starts the hub's main event loop. It handles client registration,
// unregistration, and message broadcasting, and exits when the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range defaultChannels {
		go h.subscribeToChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.channel) {
					select {
					case c.send <- msg.data:
					default:
						// Client's send buffer is full; drop the message.
						h.logger.Warn("dropping message for slow client",
							slog.String("client_id", c.id),
						)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// subscribeToChannel subscribes to a single event-bus channel and forwards
// received messages to the hub's broadcast channel.
func (h *Hub) subscribeToChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("subscribed to channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("channel subscription closed", slog.String("channel", channel))
				return
			}
			h.broadcast <- broadcastMsg{channel: channel, data: data}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	// New clients start subscribed to every channel; they can narrow later.
	for _, ch := range defaultChannels {
		c.subs[ch] = true
	}

	h.register <- c
	c.sendInitialStatus()

	go c.writePump()
	go c.readPump(r.Context())
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// statusPayload builds the bot_status frame body.
func (h *Hub) statusPayload() map[string]any {
	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}
	stats := h.tracker.Stats()
	payload := map[string]any{
		"mode":             h.mode,
		"ws_connected":     true,
		"uptime_seconds":   uptime,
		"active_positions": stats.ActivePositions,
		"total_trades":     stats.TotalTrades,
		"total_pnl":        stats.TotalPnL,
	}
	if h.auto != nil {
		payload["auto_execute"] = h.auto.AutoExecute()
	}
	return payload
}

// readPump reads frames from the connection and dispatches commands. It owns
// the read side; exiting unregisters the client.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var cmd command
		if jsonErr := json.Unmarshal(message, &cmd); jsonErr != nil {
			c.reply("", false, nil, "invalid JSON command")
			continue
		}
		c.handleCommand(ctx, cmd)
	}
}

// handleCommand executes a single client command and sends the reply frame.
func (c *client) handleCommand(ctx context.Context, cmd command) {
	switch cmd.Action {
	case "subscribe":
		c.mu.Lock()
		for _, ch := range cmd.Channels {
			c.subs[ch] = true
		}
		c.mu.Unlock()
		c.reply(cmd.RequestID, true, map[string]any{"subscribed": cmd.Channels}, "")

	case "unsubscribe":
		c.mu.Lock()
		for _, ch := range cmd.Channels {
			delete(c.subs, ch)
		}
		c.mu.Unlock()
		c.reply(cmd.RequestID, true, map[string]any{"unsubscribed": cmd.Channels}, "")

	case "place_order":
		result, err := c.hub.orders.PlaceOrder(ctx, domain.Order{
			Broker:   domain.BrokerName(cmd.Broker),
			Symbol:   cmd.Symbol,
			Side:     domain.OrderSide(cmd.Side),
			Quantity: cmd.Quantity,
			Price:    cmd.Price,
		})
		if err != nil {
			c.reply(cmd.RequestID, false, nil, err.Error())
			return
		}
		c.reply(cmd.RequestID, true, map[string]any{"result": result}, "")

	case "cancel_order":
		result, err := c.hub.orders.CancelOrder(ctx, domain.BrokerName(cmd.Broker), cmd.OrderID)
		if err != nil {
			c.reply(cmd.RequestID, false, nil, err.Error())
			return
		}
		c.reply(cmd.RequestID, true, map[string]any{"result": result}, "")

	case "set_auto_execute":
		if c.hub.auto == nil {
			c.reply(cmd.RequestID, false, nil, "signal runner not active in this mode")
			return
		}
		if cmd.Enabled == nil {
			c.reply(cmd.RequestID, false, nil, "enabled field is required")
			return
		}
		c.hub.auto.SetAutoExecute(*cmd.Enabled)
		c.reply(cmd.RequestID, true, map[string]any{"auto_execute": *cmd.Enabled}, "")

	case "monitor_now":
		stats := c.hub.tracker.MonitorPositions(ctx, cmd.MonitorPrice)
		c.reply(cmd.RequestID, true, map[string]any{"stats": stats}, "")

	case "get_status":
		c.reply(cmd.RequestID, true, c.hub.statusPayload(), "")

	default:
		c.reply(cmd.RequestID, false, nil, "unknown action "+cmd.Action)
	}
}

// reply queues an acknowledgement frame for the command.
func (c *client) reply(requestID string, ok bool, payload map[string]any, errMsg string) {
	frame := map[string]any{
		"type": "reply",
		"ok":   ok,
	}
	if requestID != "" {
		frame["request_id"] = requestID
	}
	if payload != nil {
		frame["payload"] = payload
	}
	if errMsg != "" {
		frame["error"] = errMsg
	}

	msg, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// sendInitialStatus pushes a status envelope so clients can immediately mark
// the connection healthy before any trading events flow.
func (c *client) sendInitialStatus() {
	msg, err := json.Marshal(map[string]any{
		"type":    "bot_status",
		"payload": c.hub.statusPayload(),
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// isSubscribed checks whether the client is subscribed to the given channel,
// honoring trailing-* wildcards.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subs[channel] {
		return true
	}
	for sub := range c.subs {
		if len(sub) > 0 && sub[len(sub)-1] == '*' {
			prefix := sub[:len(sub)-1]
			if len(channel) >= len(prefix) && channel[:len(prefix)] == prefix {
				return true
			}
		}
	}
	return false
}

// writePump pumps messages from the hub to the WebSocket connection as JSON
// text frames, with periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
