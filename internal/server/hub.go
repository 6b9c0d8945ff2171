package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Event is a spectator notification pushed to every connected /ws client:
// round/game settlements, envelope claims, mail dispatch. Kind names the
// event ("blackjack_settled", "mines_settled", "onestroke_completed",
// "envelope_claimed", "mail_sent", ...); Payload is whatever detail that
// event carries.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans spectator events out to every connected websocket client,
// adapted from the teacher's crash-round broadcast hub to carry arbitrary
// domain events instead of a single RoundState.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
}

// NewHub returns a Hub; call Run in its own goroutine to start it pumping.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 100),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run pumps register/unregister/broadcast until ctx-less process exit;
// callers run it in a background goroutine for the process lifetime.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			log.Printf("[WS] spectator connected (total: %d)", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
				log.Printf("[WS] spectator disconnected (total: %d)", len(h.clients))
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[WS] marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				go c.send(data)
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for every connected spectator. Non-blocking:
// a full queue drops the event rather than stall the caller.
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Println("[WS] broadcast queue full, dropping event")
	}
}

// ClientCount reports how many spectators are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] write error: %v", err)
	}
}

func (h *Hub) connect(conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.register <- c
	return c
}

func (h *Hub) unregisterConn(conn *websocket.Conn) {
	h.mu.RLock()
	for c := range h.clients {
		if c.conn == conn {
			h.mu.RUnlock()
			h.unregister <- c
			return
		}
	}
	h.mu.RUnlock()
}
