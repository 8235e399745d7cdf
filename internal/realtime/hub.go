// Package realtime pushes saved requisitions to open list views over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dagelec/dagelec-erp/internal/listview"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/requisition"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 64 << 10
)

// Event operations sent to subscribers.
const (
	OpSubscribed = "subscribed"
	OpUpsert     = "upsert"
	OpRemove     = "remove"
)

// Event is one message pushed to a list view.
type Event struct {
	Op  string           `json:"op"`
	PK  string           `json:"pk,omitempty"`
	Row *requisition.Row `json:"row,omitempty"`
}

// Subscribe is sent by the list view to (re)declare its filter and the rows it shows.
type Subscribe struct {
	Filter  requisition.Filter `json:"filter"`
	Visible []string           `json:"visible"`
}

// Decorator computes the viewer-specific row for a requisition.
type Decorator func(ev *rbac.Evaluator, f requisition.Filter, r requisition.Requisition) requisition.Row

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	ev      *rbac.Evaluator
	filter  requisition.Filter
	visible []string
}

type subscription struct {
	client *client
	msg    Subscribe
}

// Hub keeps the connected list views. All subscriber state is owned by Run.
type Hub struct {
	decorate   Decorator
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	subscribe  chan subscription
	broadcast  chan requisition.Requisition
	done       chan struct{}
	connected  atomic.Int64
}

// NewHub constructs a Hub. Call Run before serving connections.
func NewHub(decorate Decorator, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		decorate:   decorate,
		logger:     logger,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		subscribe:  make(chan subscription),
		broadcast:  make(chan requisition.Requisition, 64),
		done:       make(chan struct{}),
	}
}

// Connected returns the number of registered connections.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

// Run dispatches events until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Add(1)
		case c := <-h.unregister:
			h.drop(c)
		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			sub.client.filter = sub.msg.Filter
			sub.client.visible = slices.Clone(sub.msg.Visible)
			h.deliver(sub.client, Event{Op: OpSubscribed})
		case r := <-h.broadcast:
			for c := range h.clients {
				h.route(c, r)
			}
		}
	}
}

// PublishRequisition implements requisition.Publisher. It never blocks the
// caller; snapshots are dropped when the hub is saturated.
func (h *Hub) PublishRequisition(_ context.Context, r requisition.Requisition) {
	select {
	case h.broadcast <- r:
	default:
		h.logger.Warn("realtime broadcast dropped", slog.String("pk", r.PK))
	}
}

func (h *Hub) route(c *client, r requisition.Requisition) {
	next, change := listview.Reconcile(c.visible, r.PK,
		func(pk string) string { return pk },
		func(string) bool { return c.filter.Matches(r) })
	c.visible = next
	switch change {
	case listview.Inserted, listview.Replaced:
		row := h.decorate(c.ev, c.filter, r)
		h.deliver(c, Event{Op: OpUpsert, PK: r.PK, Row: &row})
	case listview.Removed:
		h.deliver(c, Event{Op: OpRemove, PK: r.PK})
	}
}

func (h *Hub) deliver(c *client, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("realtime encode", slog.Any("error", err))
		return
	}
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("realtime client too slow, disconnecting")
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// ServeWS upgrades the request and registers the connection with the
// permissions attached to the request context.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 32),
		ev:      rbac.EvaluatorFromContext(r.Context()),
		visible: []string{},
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Subscribe
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read", slog.Any("error", err))
			}
			return
		}
		select {
		case c.hub.subscribe <- subscription{client: c, msg: msg}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
