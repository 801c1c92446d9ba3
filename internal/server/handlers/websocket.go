// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koo5/hillview-sub009/internal/service/worker"
)

// HostClient represents one connected host UI over WebSocket.
type HostClient struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	worker *worker.Worker

	closeOnce sync.Once
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 1024 * 1024, // 1MB
	}
}

// WebSocketUpgrader is used to upgrade HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The bridge binds to loopback; the host is the only caller.
		return true
	},
}

// HostWebSocketHandler handles the host UI's bridge connection. Inbound
// frames are posted to the worker queue; outbound worker messages arrive
// through the hub.
func HostWebSocketHandler(hub *Hub, wk *worker.Worker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := &HostClient{
			conn:   conn,
			send:   make(chan []byte, 256),
			hub:    hub,
			worker: wk,
		}

		hub.register(client)

		// Handshake so the host knows the bridge is live. Queued before the
		// pumps start so it is always the first frame out.
		welcomeMsg := map[string]interface{}{
			"type": "ready",
			"time": time.Now(),
		}
		welcomeJSON, _ := json.Marshal(welcomeMsg)
		client.send <- welcomeJSON

		go client.writePump()
		go client.readPump()

		log.Printf("New host bridge connection from %s", r.RemoteAddr)
	}
}

// readPump pumps messages from the WebSocket connection into the worker
// queue.
func (c *HostClient) readPump() {
	config := DefaultWebSocketConfig()

	defer func() {
		c.closeConnection()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if err := c.worker.Post(message); err != nil {
			log.Printf("Failed to decode host message: %v", err)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *HostClient) writePump() {
	config := DefaultWebSocketConfig()
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection closes the WebSocket connection and cleans up resources
func (c *HostClient) closeConnection() {
	c.closeOnce.Do(func() {
		c.hub.unregister(c)
		c.conn.Close()

		log.Printf("Host bridge connection closed")
	})
}
