// internal/server/handlers/hub.go

package handlers

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/koo5/hillview-sub009/internal/events"
)

// Hub fans outbound worker messages out to every connected host client and
// mirrors them to NATS. It is the worker's emitter; the worker never sees
// individual connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*HostClient]struct{}
	mirror  *events.Publisher
}

// NewHub creates a hub. The mirror may be nil.
func NewHub(mirror *events.Publisher) *Hub {
	return &Hub{
		clients: make(map[*HostClient]struct{}),
		mirror:  mirror,
	}
}

// Emit encodes one outbound message and broadcasts it. Clients whose send
// queue is full are dropped; a host that stops reading must not stall the
// worker loop.
func (h *Hub) Emit(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode outbound message: %v", err)
		return
	}

	h.mirror.Publish(data)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("Host client send queue full, closing connection")
			go c.closeConnection()
		}
	}
}

func (h *Hub) register(c *HostClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
}

// unregister removes a client and closes its send queue. Closing under the
// write lock guarantees Emit never sends on a closed channel.
func (h *Hub) unregister(c *HostClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ClientCount reports connected host clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
