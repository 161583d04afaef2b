package statuschannel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdash/flowdash/pkg/models"
)

// statusFeedServer is a minimal push endpoint: it records the bearer token
// and subscribe frame of every connection and lets tests send events or kill
// the active connection.
type statusFeedServer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	conn        *websocket.Conn
	tokens      []string
	subscribed  []subscribeFrame
	connections int
}

func newStatusFeedServer(t *testing.T) *statusFeedServer {
	t.Helper()

	feed := &statusFeedServer{t: t}
	feed.server = httptest.NewServer(http.HandlerFunc(feed.handle))
	t.Cleanup(feed.server.Close)

	return feed
}

func (f *statusFeedServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var frame subscribeFrame
	if err := conn.ReadJSON(&frame); err != nil {
		_ = conn.Close()

		return
	}

	f.mu.Lock()
	f.conn = conn
	f.tokens = append(f.tokens, r.Header.Get("Authorization"))
	f.subscribed = append(f.subscribed, frame)
	f.connections++
	f.mu.Unlock()

	// Keep reading so control frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *statusFeedServer) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *statusFeedServer) send(event models.StatusUpdateEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	payload, err := json.Marshal(event)
	require.NoError(f.t, err)
	require.NoError(f.t, f.conn.WriteMessage(websocket.TextMessage, payload))
}

func (f *statusFeedServer) kill() {
	f.mu.Lock()
	defer f.mu.Unlock()

	_ = f.conn.Close()
}

func (f *statusFeedServer) connectionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connections
}

func (f *statusFeedServer) waitForConnections(count int) {
	f.t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.connectionCount() >= count {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	f.t.Fatalf("timed out waiting for %d connections", count)
}

func newTestChannel(feed *statusFeedServer) *WebSocketChannel {
	return NewWebSocketChannel(feed.url(), slog.Default(),
		WithReconnectDelay(20*time.Millisecond),
		WithHeartbeatInterval(50*time.Millisecond),
	)
}

func TestWebSocketChannel_ConnectAndReceive(t *testing.T) {
	feed := newStatusFeedServer(t)
	channel := newTestChannel(feed)

	events := make(chan models.StatusUpdateEvent, 8)
	channel.Subscribe("test", func(event models.StatusUpdateEvent) { events <- event })

	require.NoError(t, channel.Connect(t.Context(), "token-123"))
	assert.True(t, channel.Connected())

	defer func() {
		require.NoError(t, channel.Disconnect())
	}()

	feed.waitForConnections(1)

	// The dial carried the bearer token and the subscribe handshake.
	feed.mu.Lock()
	require.Len(t, feed.tokens, 1)
	assert.Equal(t, "Bearer token-123", feed.tokens[0])
	require.Len(t, feed.subscribed, 1)
	assert.Equal(t, subscribeFrame{Type: "subscribe", Topic: Topic}, feed.subscribed[0])
	feed.mu.Unlock()

	feed.send(models.StatusUpdateEvent{InstanceID: 1, Status: "RUNNING"})

	event := waitForEvent(t, events)
	assert.Equal(t, int64(1), event.InstanceID)
}

func TestWebSocketChannel_ReconnectsAfterLoss(t *testing.T) {
	feed := newStatusFeedServer(t)
	channel := newTestChannel(feed)

	events := make(chan models.StatusUpdateEvent, 8)
	channel.Subscribe("test", func(event models.StatusUpdateEvent) { events <- event })

	require.NoError(t, channel.Connect(t.Context(), "token-123"))

	defer func() {
		require.NoError(t, channel.Disconnect())
	}()

	feed.waitForConnections(1)
	feed.kill()
	feed.waitForConnections(2)

	// The fresh connection re-subscribed and still feeds the same listener.
	feed.mu.Lock()
	assert.Len(t, feed.subscribed, 2)
	feed.mu.Unlock()

	feed.send(models.StatusUpdateEvent{InstanceID: 2, Status: "SUCCESS"})
	assert.Equal(t, int64(2), waitForEvent(t, events).InstanceID)
}

func TestWebSocketChannel_ConnectFailure(t *testing.T) {
	channel := NewWebSocketChannel("ws://127.0.0.1:1/ws", slog.Default())

	err := channel.Connect(t.Context(), "")
	require.Error(t, err)

	var connectErr *ConnectError

	require.ErrorAs(t, err, &connectErr)
	assert.False(t, channel.Connected())
}

func TestWebSocketChannel_ConnectTwiceIsNoOp(t *testing.T) {
	feed := newStatusFeedServer(t)
	channel := newTestChannel(feed)

	require.NoError(t, channel.Connect(t.Context(), ""))
	require.NoError(t, channel.Connect(t.Context(), ""))

	feed.waitForConnections(1)
	assert.Equal(t, 1, feed.connectionCount())

	require.NoError(t, channel.Disconnect())
}

func TestWebSocketChannel_DisconnectIsIdempotentAndClearsListeners(t *testing.T) {
	feed := newStatusFeedServer(t)
	channel := newTestChannel(feed)

	events := make(chan models.StatusUpdateEvent, 8)
	channel.Subscribe("test", func(event models.StatusUpdateEvent) { events <- event })

	require.NoError(t, channel.Connect(t.Context(), ""))
	feed.waitForConnections(1)

	require.NoError(t, channel.Disconnect())
	require.NoError(t, channel.Disconnect())
	assert.False(t, channel.Connected())

	channel.listeners.dispatch(models.StatusUpdateEvent{InstanceID: 9})

	select {
	case <-events:
		t.Fatal("listeners must be cleared on disconnect")
	default:
	}
}

func TestWebSocketChannel_NoReconnectAfterDisconnect(t *testing.T) {
	feed := newStatusFeedServer(t)
	channel := newTestChannel(feed)

	require.NoError(t, channel.Connect(t.Context(), ""))
	feed.waitForConnections(1)
	require.NoError(t, channel.Disconnect())

	// Give a would-be reconnect loop several delay periods to show up.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, feed.connectionCount())
}
