package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/events"
)

// Hub fans lifecycle events out to connected kitchen and floor displays
// over websocket. It implements events.Notifier so it can be wired next
// to the NATS publisher.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]string),
		logger:  logger,
	}
}

// RegisterClient adds a display connection with its role (chef, staff,
// admin).
func (h *Hub) RegisterClient(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

// UnregisterClient drops a display connection and closes it.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// ClientCount returns the number of connected displays.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish broadcasts the event to every connected display. A failed
// write evicts the connection; the display reconnects and re-reads state
// keyed by ticket id.
func (h *Hub) Publish(event events.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("kds: marshal %s: %v", event.Type, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Errorf("kds: write to client failed, evicting: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
