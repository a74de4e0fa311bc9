package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"storefront/models"
)

type Client struct {
	Send   chan []byte
	UserID string
}

// Hub fans order events out to every connected admin client.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.Send)
			}

		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.Send <- data:
				default:
					// slow consumer
					close(c.Send)
					delete(h.clients, c)
				}
			}
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a raw frame for every client. It drops the frame when the
// hub is stopped.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// Emit lets the hub stand in for the Redis emitter on single-instance deployments.
func (h *Hub) Emit(_ context.Context, event models.OrderEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal order event", "type", event.Type, "err", err)
		return
	}
	h.Broadcast(data)
}
