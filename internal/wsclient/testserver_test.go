package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// testHub is a minimal fake game server: it accepts WebSocket upgrades,
// records every inbound frame, and can broadcast to all live clients.
type testHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	inbound  [][]byte
	upgrades int
	reject   bool
}

func newTestHub() *testHub {
	return &testHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *testHub) handler(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.upgrades++
	reject := h.reject
	h.mu.Unlock()

	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			break
		}
		h.mu.Lock()
		h.inbound = append(h.inbound, data)
		h.mu.Unlock()
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *testHub) broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			delete(h.clients, conn)
		}
	}
}

func (h *testHub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "test drop")
		delete(h.clients, conn)
	}
}

func (h *testHub) setReject(reject bool) {
	h.mu.Lock()
	h.reject = reject
	h.mu.Unlock()
}

func (h *testHub) upgradeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.upgrades
}

func (h *testHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *testHub) frames() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.inbound))
	copy(out, h.inbound)
	return out
}

func startTestServer(t *testing.T) (*testHub, Options) {
	t.Helper()
	hub := newTestHub()
	server := httptest.NewServer(http.HandlerFunc(hub.handler))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	opts := Options{
		URL:               func(sessionID string) string { return wsURL + "/ws/" + sessionID },
		DialTimeout:       2 * time.Second,
		ReconnectBase:     5 * time.Millisecond,
		ReconnectAttempts: 3,
	}
	return hub, opts
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}
