package statuschannel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowdash/flowdash/pkg/models"
)

// subscribeFrame is the handshake frame sent after dialing; the server
// starts streaming the topic once it arrives.
type subscribeFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// WebSocketChannel is the websocket transport of the status channel. On
// unexpected transport loss it redials with a fixed delay and re-subscribes
// to the same topic; listeners are not renotified, they simply stop and
// resume receiving events. Liveness is checked with ping/pong frames on a
// fixed interval so half-open connections die faster than TCP would notice.
type WebSocketChannel struct {
	endpoint       string
	logger         *slog.Logger
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	heartbeat      time.Duration
	listeners      *listenerSet

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	credential string

	connMu    sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
}

type WebSocketOption func(*WebSocketChannel)

// WithReconnectDelay overrides the fixed delay between redial attempts.
func WithReconnectDelay(delay time.Duration) WebSocketOption {
	return func(c *WebSocketChannel) {
		c.reconnectDelay = delay
	}
}

// WithHeartbeatInterval overrides the ping interval.
func WithHeartbeatInterval(interval time.Duration) WebSocketOption {
	return func(c *WebSocketChannel) {
		c.heartbeat = interval
	}
}

func NewWebSocketChannel(endpoint string, logger *slog.Logger, opts ...WebSocketOption) *WebSocketChannel {
	c := &WebSocketChannel{
		endpoint:       endpoint,
		logger:         logger.With("endpoint", endpoint),
		dialer:         websocket.DefaultDialer,
		reconnectDelay: DefaultReconnectDelay,
		heartbeat:      DefaultHeartbeatInterval,
		listeners:      newListenerSet(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect dials the push endpoint, subscribes to the status topic and starts
// the reader. Connecting an already connected channel is a no-op.
func (c *WebSocketChannel) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	conn, err := c.dial(ctx, credential)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.credential = credential
	c.setConn(conn)
	c.connected.Store(true)

	go c.run(runCtx, conn)

	return nil
}

func (c *WebSocketChannel) Subscribe(listenerID string, fn Listener) {
	c.listeners.add(listenerID, fn)
}

func (c *WebSocketChannel) Unsubscribe(listenerID string) {
	c.listeners.remove(listenerID)
}

// Disconnect stops the reader, closes the connection and clears all
// listeners, even ones that never unsubscribed. Idempotent.
func (c *WebSocketChannel) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return nil
	}

	c.cancel()

	if conn := c.currentConn(); conn != nil {
		_ = conn.Close()
	}

	<-c.done

	c.cancel = nil
	c.done = nil
	c.listeners.clear()

	return nil
}

func (c *WebSocketChannel) Connected() bool {
	return c.connected.Load()
}

func (c *WebSocketChannel) dial(ctx context.Context, credential string) (*websocket.Conn, error) {
	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, header) //nolint:bodyclose // gorilla owns the hijacked response
	if err != nil {
		return nil, &ConnectError{Message: err.Error(), Err: err}
	}

	err = conn.WriteJSON(subscribeFrame{Type: "subscribe", Topic: Topic})
	if err != nil {
		_ = conn.Close()

		return nil, &ConnectError{Message: "subscribe handshake: " + err.Error(), Err: err}
	}

	return conn, nil
}

// run owns the connection until Disconnect: read until failure, then redial
// with the fixed delay, keeping the listener registry intact across cycles.
func (c *WebSocketChannel) run(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)
	defer c.connected.Store(false)

	for {
		c.readLoop(ctx, conn)
		_ = conn.Close()
		c.connected.Store(false)

		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("Status channel lost, reconnecting", "delay", c.reconnectDelay)

		next := c.redial(ctx)
		if next == nil {
			return
		}

		conn = next
		c.setConn(conn)
		c.connected.Store(true)
		c.logger.Info("Status channel reconnected")
	}
}

// redial retries with the fixed delay until a dial succeeds or the channel is
// torn down.
func (c *WebSocketChannel) redial(ctx context.Context) *websocket.Conn {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}

		conn, err := c.dial(ctx, c.credential)
		if err != nil {
			c.logger.Warn("Reconnect attempt failed", "error", err)

			continue
		}

		return conn
	}
}

func (c *WebSocketChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	deadline := 2*c.heartbeat + c.heartbeat/2

	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	pingCtx, stopPings := context.WithCancel(ctx)
	defer stopPings()

	go c.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(deadline))

		var event models.StatusUpdateEvent

		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Debug("Skipping malformed status frame", "error", err)

			continue
		}

		c.listeners.dispatch(event)
	}
}

func (c *WebSocketChannel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.heartbeat))
			if err != nil {
				return
			}
		}
	}
}

func (c *WebSocketChannel) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.conn = conn
}

func (c *WebSocketChannel) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.conn
}
