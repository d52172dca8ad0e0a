package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The mock API is a local development tool.
		return true
	},
}

type Client struct {
	conn   *websocket.Conn
	send   chan *events.Event
	types  map[events.EventType]bool
	hub    *Hub
	logger *logrus.Logger
}

func (c *Client) wants(event *events.Event) bool {
	return len(c.types) == 0 || c.types[event.Type]
}

// Hub streams order events to websocket subscribers. Clients may pass
// ?types=order.created,order.updated to receive only some event types.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *events.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *events.Event, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run dispatches events until ctx is canceled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithField("client_count", count).Info("Event subscriber connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithField("client_count", count).Info("Event subscriber disconnected")

		case event := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if !client.wants(event) {
					continue
				}
				select {
				case client.send <- event:
				default:
					// Slow subscriber.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues event for every subscriber. It never blocks; events are
// dropped when the queue is full.
func (h *Hub) Publish(_ context.Context, event *events.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("event_id", event.ID).Warn("Broadcast channel full, dropping event")
	}
	return nil
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan *events.Event, sendBuffer),
		types:  parseTypes(r.URL.Query().Get("types")),
		hub:    h,
		logger: h.logger,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func parseTypes(raw string) map[events.EventType]bool {
	if raw == "" {
		return nil
	}
	types := make(map[events.EventType]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types[events.EventType(t)] = true
		}
	}
	return types
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

// writePump sends one JSON event per text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				c.logger.WithError(err).Error("Failed to marshal event")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
