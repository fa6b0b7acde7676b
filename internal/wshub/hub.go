package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"fitchallenge/internal/broadcast"
	"fitchallenge/internal/events"
	"fitchallenge/internal/logging"
	"fitchallenge/internal/metrics"
	"fitchallenge/internal/mutation"
)

const sendBuffer = 32

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type  string `json:"t"` // "sub" or "unsub"
	Table string `json:"table,omitempty"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type   string           `json:"t"` // "change", "notice", "subscribed", "unsubscribed", "error"
	Table  string           `json:"table,omitempty"`
	Op     events.Op        `json:"op,omitempty"`
	ID     string           `json:"id,omitempty"`
	Notice *mutation.Notice `json:"notice,omitempty"`
	Error  string           `json:"error,omitempty"`
}

var knownTables = map[string]bool{
	events.TableCompetitors: true,
	events.TableProofs:      true,
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex
	subs   map[string]*broadcast.Subscription
	closed bool
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		subs: make(map[string]*broadcast.Subscription),
	}
}

// deliver queues data unless the client is gone or its buffer is full.
func (c *Client) deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub tracks realtime clients and their table subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	manager *broadcast.Manager
	log     *logrus.Entry
}

func NewHub(manager *broadcast.Manager, log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		manager: manager,
		log:     logging.For(log, "WSHub"),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	metrics.RealtimeClients.WithLabelValues("ws").Set(float64(len(h.clients)))
}

// Unregister releases the client's subscriptions and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	metrics.RealtimeClients.WithLabelValues("ws").Set(float64(len(h.clients)))
	h.mu.Unlock()
	if !ok {
		return
	}

	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*broadcast.Subscription)
	c.closed = true
	close(c.Send)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) send(c *Client, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Warn("marshal error")
		return
	}
	c.deliver(data)
}

// Subscribe starts forwarding change events for table to c.
func (h *Hub) Subscribe(c *Client, table string) error {
	c.mu.Lock()
	if c.closed || c.subs[table] != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sub, err := h.manager.Subscribe(table)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed || c.subs[table] != nil {
		c.mu.Unlock()
		sub.Close()
		return nil
	}
	c.subs[table] = sub
	c.mu.Unlock()

	go func() {
		for ev := range sub.C {
			h.send(c, ServerMessage{Type: "change", Table: ev.Table, Op: ev.Op, ID: ev.RecordID})
		}
	}()
	return nil
}

func (h *Hub) Unsubscribe(c *Client, table string) {
	c.mu.Lock()
	sub := c.subs[table]
	delete(c.subs, table)
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// HandleMessage applies one client message.
func (h *Hub) HandleMessage(c *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.send(c, ServerMessage{Type: "error", Error: "invalid message"})
		return
	}
	if !knownTables[msg.Table] {
		h.send(c, ServerMessage{Type: "error", Error: "unknown table"})
		return
	}
	switch msg.Type {
	case "sub":
		if err := h.Subscribe(c, msg.Table); err != nil {
			h.log.WithError(err).WithField("table", msg.Table).Warn("subscribe failed")
			h.send(c, ServerMessage{Type: "error", Table: msg.Table, Error: "subscribe failed"})
			return
		}
		h.send(c, ServerMessage{Type: "subscribed", Table: msg.Table})
	case "unsub":
		h.Unsubscribe(c, msg.Table)
		h.send(c, ServerMessage{Type: "unsubscribed", Table: msg.Table})
	default:
		h.send(c, ServerMessage{Type: "error", Error: "unknown message type"})
	}
}

// Notify forwards a session notice to c.
func (h *Hub) Notify(c *Client, n mutation.Notice) {
	h.send(c, ServerMessage{Type: "notice", Notice: &n})
}

// Serve runs a connection until the client goes away or ctx ends. notices may
// be nil for anonymous clients.
func (h *Hub) Serve(ctx context.Context, c *Client, notices <-chan mutation.Notice) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Register(c)
	defer h.Unregister(c.ID)

	go c.WritePump(ctx)
	if notices != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case n, ok := <-notices:
					if !ok {
						return
					}
					h.Notify(c, n)
				}
			}
		}()
	}

	for {
		_, data, err := c.Conn.Read(ctx)
		if err != nil {
			return
		}
		h.HandleMessage(c, data)
	}
}
