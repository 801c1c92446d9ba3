// internal/server/handlers/websocket_test.go

package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
	"github.com/koo5/hillview-sub009/internal/service/auth"
	"github.com/koo5/hillview-sub009/internal/service/cull"
	"github.com/koo5/hillview-sub009/internal/service/worker"
)

func newBridgeWorker(hub *Hub) *worker.Worker {
	client := retryablehttp.NewClient()
	client.Logger = nil

	return worker.New(
		worker.DefaultConfig("test-client"),
		hub,
		auth.NewTokenManager(hub),
		cull.New(cull.DefaultConfig()),
		nil,
		nil,
		client,
	)
}

func dialBridge(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

// runBridgeWorker starts the worker loop and returns a stop func.
func runBridgeWorker(t *testing.T, wk *worker.Worker) (stop func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wk.Run()
		close(done)
	}()
	return func() {
		wk.PostMessage(domain.Control{Type: domain.MsgTerminate})
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not shut down")
		}
	}
}

// readFrameOfType reads frames (possibly newline-batched by the write pump)
// until one of the given type arrives.
func readFrameOfType(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, "no %s frame arrived", msgType)
		for _, line := range strings.Split(string(payload), "\n") {
			if line == "" {
				continue
			}
			var msg map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(line), &msg))
			if msg["type"] == msgType {
				return msg
			}
		}
	}
}

func TestBridgeHandshakeAndInbound(t *testing.T) {
	hub := NewHub(nil)
	wk := newBridgeWorker(hub)
	stop := runBridgeWorker(t, wk)
	defer stop()

	server := httptest.NewServer(HostWebSocketHandler(hub, wk))
	defer server.Close()

	conn := dialBridge(t, server.URL)
	defer conn.Close()

	// First frame is the ready handshake.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ready map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ready))
	assert.Equal(t, "ready", ready["type"])

	// An inbound viewport frame runs through the loop and comes back as a
	// photosUpdate on the same socket.
	err := conn.WriteMessage(websocket.TextMessage, []byte(
		`{"type": "areaUpdated", "messageId": 1, "bounds": {"topLeft": {"lat": 50, "lng": 14}, "bottomRight": {"lat": 49, "lng": 15}}}`,
	))
	require.NoError(t, err)

	update := readFrameOfType(t, conn, "photosUpdate")
	assert.Equal(t, 200.0, update["currentRange"])
	assert.Empty(t, update["photosInArea"])
}

func TestHubBroadcastsToClient(t *testing.T) {
	hub := NewHub(nil)
	wk := newBridgeWorker(hub)

	server := httptest.NewServer(HostWebSocketHandler(hub, wk))
	defer server.Close()

	conn := dialBridge(t, server.URL)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ready map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ready))

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Emit(domain.Toast{
		Type:    domain.MsgToast,
		Level:   "info",
		Message: "hello",
	})

	// Frames may be newline-batched by the write pump.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var toast domain.Toast
	first := strings.SplitN(string(payload), "\n", 2)[0]
	require.NoError(t, json.Unmarshal([]byte(first), &toast))
	assert.Equal(t, domain.MsgToast, toast.Type)
	assert.Equal(t, "hello", toast.Message)
}

func TestHubUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	wk := newBridgeWorker(hub)

	server := httptest.NewServer(HostWebSocketHandler(hub, wk))
	defer server.Close()

	conn := dialBridge(t, server.URL)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Emitting with no clients must not panic.
	hub.Emit(domain.Toast{Type: domain.MsgToast, Level: "info", Message: "nobody home"})
}
