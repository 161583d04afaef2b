package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowdash/flowdash/pkg/models"
	"github.com/flowdash/flowdash/pkg/statuschannel"
)

const clientWriteTimeout = 5 * time.Second

// Broadcaster publishes a status event to whoever is listening. The simulator
// only needs this one method.
type Broadcaster interface {
	Broadcast(event models.StatusUpdateEvent)
}

type wsClient struct {
	conn *websocket.Conn

	mu         sync.Mutex
	subscribed bool
}

// WSHub accepts websocket connections, waits for a subscribe frame naming the
// status topic and then streams every broadcast event to that connection.
// Dead connections are dropped on the first failed write.
type WSHub struct {
	store    *memoryStore
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewWSHub(store *memoryStore, logger *slog.Logger) *WSHub {
	return &WSHub{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps reading until the peer goes away.
// Incoming frames other than the subscribe handshake are ignored.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "missing or invalid bearer token", http.StatusUnauthorized)

		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", "error", err)

		return
	}

	client := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()

		_ = conn.Close()
	}()

	conn.SetPingHandler(func(payload string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(clientWriteTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame struct {
			Type  string `json:"type"`
			Topic string `json:"topic"`
		}

		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		if frame.Type == "subscribe" && frame.Topic == statuschannel.Topic {
			client.mu.Lock()
			client.subscribed = true
			client.mu.Unlock()
		}
	}
}

// Broadcast sends the event to every subscribed connection. A client whose
// write fails is closed; its read loop cleans it up.
func (h *WSHub) Broadcast(event models.StatusUpdateEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode status event", "error", err)

		return
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.mu.Lock()

		if !client.subscribed {
			client.mu.Unlock()

			continue
		}

		_ = client.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
		err := client.conn.WriteMessage(websocket.TextMessage, payload)
		client.mu.Unlock()

		if err != nil {
			h.logger.Debug("Dropping dead websocket client", "error", err)
			_ = client.conn.Close()
		}
	}
}

func (h *WSHub) authorized(r *http.Request) bool {
	const prefix = "Bearer "

	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}

	return h.store.validToken(header[len(prefix):])
}
