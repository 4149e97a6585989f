package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"physics-lab/tools/logger"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Message is the envelope for everything sent over a connection
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler answers one inbound message. The returned value is sent back to
// the same client as a "reply"; an error is sent as an "error".
type Handler func(ctx context.Context, clientID string, m Message) (any, error)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub upgrades websocket connections and broadcasts to every client
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	handler  Handler
	upgrader websocket.Upgrader
	log      *logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub creates a hub. handler may be nil for a broadcast-only hub.
func NewHub(handler Handler, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[string]*client),
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log:    log.WithPrefix("stream"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade: %v", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Info("Client connect: id = %s", c.id)

	go h.write(c)
	h.read(c)
}

// Broadcast sends a typed message to every client. Slow clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(typ string, v any) error {
	data, err := encode(typ, v)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("dropping %s for slow client %s", typ, c.id)
		}
	}
	return nil
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.conn.Close()
		c.close()
		delete(h.clients, id)
	}
}

func (h *Hub) read(c *client) {
	defer h.disconnect(c)
	for {
		var m Message
		if err := c.conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("read from %s: %v", c.id, err)
			}
			return
		}
		if h.handler == nil {
			continue
		}
		reply, err := h.handler(h.ctx, c.id, m)
		var data []byte
		if err != nil {
			data, _ = encode("error", map[string]string{"message": err.Error()})
		} else if reply != nil {
			data, err = encode("reply", reply)
			if err != nil {
				h.log.Error("encode reply: %v", err)
				continue
			}
		}
		if data != nil {
			h.enqueue(c, data)
		}
	}
}

func (h *Hub) enqueue(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) write(c *client) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("write to %s: %v", c.id, err)
			c.conn.Close()
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.conn.Close()
}

func (h *Hub) disconnect(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if ok {
		c.close()
		h.log.Info("Client disconnect: id = %s", c.id)
	}
}

func encode(typ string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return json.Marshal(Message{Type: typ, Data: payload})
}
