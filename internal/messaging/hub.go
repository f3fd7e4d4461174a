// Package messaging pushes exchange-thread events to connected clients over
// websockets.
package messaging

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sudo-init-do/skillswap/internal/marketplace"
)

// Presence event types.
const (
	EventPresenceJoin  = "presence_join"
	EventPresenceLeave = "presence_leave"
)

// writeWait bounds a single frame write so a peer that stops reading cannot
// stall Publish.
var writeWait = 10 * time.Second

type client struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex // gorilla allows one concurrent writer
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub keeps one room of live connections per exchange.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

// Publish sends ev to everyone watching its exchange. A connection that fails
// a write is closed, which ends its read loop and unregisters it.
func (h *Hub) Publish(ev marketplace.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[ws] marshal %s event: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[ev.ExchangeID]))
	for c := range h.rooms[ev.ExchangeID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			log.Printf("[ws] write to %s on %s: %v", c.userID, ev.ExchangeID, err)
			_ = c.conn.Close()
		}
	}
}

func (h *Hub) register(exchangeID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[exchangeID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[exchangeID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(exchangeID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[exchangeID]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, exchangeID)
	}
}

// Watchers returns how many connections are open on an exchange.
func (h *Hub) Watchers(exchangeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[exchangeID])
}
