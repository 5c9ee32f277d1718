// Package sync pushes library events to connected TCP and WebSocket clients.
// Clients authenticate with a bearer token and receive only their own events.
package sync

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"medialib/internal/events"
	"medialib/internal/metrics"
)

const writeTimeout = 2 * time.Second

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]string          // conn -> user id, "" until authenticated
	wsClients map[*websocket.Conn]string
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]string),
		wsClients: make(map[*websocket.Conn]string),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = ""
	h.mu.Unlock()
	metrics.SyncClients.WithLabelValues("tcp").Inc()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		metrics.SyncClients.WithLabelValues("tcp").Dec()
	}
	_ = conn.Close()
}

// Authenticate binds a connected TCP client to a user.
func (h *Hub) Authenticate(conn net.Conn, userID string) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		h.clients[conn] = userID
	}
	h.mu.Unlock()
}

func (h *Hub) AddWS(ws *websocket.Conn, userID string) {
	h.mu.Lock()
	h.wsClients[ws] = userID
	h.mu.Unlock()
	metrics.SyncClients.WithLabelValues("ws").Inc()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.wsClients[ws]
	delete(h.wsClients, ws)
	h.mu.Unlock()
	if ok {
		metrics.SyncClients.WithLabelValues("ws").Dec()
	}
	_ = ws.Close()
}

// SendToUser writes v as one JSON line to every client of userID.
func (h *Hub) SendToUser(userID string, v any) {
	if userID == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, uid := range h.clients {
		if uid != userID {
			continue
		}
		if err := writeLine(c, b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			metrics.SyncClients.WithLabelValues("tcp").Dec()
		}
	}

	for ws, uid := range h.wsClients {
		if uid != userID {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
			metrics.SyncClients.WithLabelValues("ws").Dec()
		}
	}
}

// Publish makes the hub an events.Publisher. Library events go to the
// owning user's clients; anything else is ignored.
func (h *Hub) Publish(ctx context.Context, topic string, event any) error {
	switch ev := event.(type) {
	case events.LibraryEvent:
		h.SendToUser(ev.UserID, ev)
	case *events.LibraryEvent:
		h.SendToUser(ev.UserID, ev)
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
		metrics.SyncClients.WithLabelValues("tcp").Dec()
	}
	for ws := range h.wsClients {
		_ = ws.Close()
		delete(h.wsClients, ws)
		metrics.SyncClients.WithLabelValues("ws").Dec()
	}
	return nil
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func writeLine(c net.Conn, b []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.Write(b)
	return err
}
