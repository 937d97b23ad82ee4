// Package kds pushes order events to connected admin dashboards over
// websockets.
package kds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/fnb-kiosk/events"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a client may fall behind before it is
	// dropped as too slow.
	sendBuffer = 64
)

// client owns one dashboard connection. Its writer goroutine is the only one
// writing data frames, so a stalled socket never blocks Publish.
type client struct {
	conn *websocket.Conn
	role string
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				utils.ErrorLogger.WithField("role", c.role).Warnf("Dropping dashboard client: %v", err)
				h.Unregister(c.conn)
				return
			}
		}
	}
}

// Hub holds the connected dashboard clients. It implements events.Publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

func (h *Hub) Register(conn *websocket.Conn, role string) {
	c := &client{conn: conn, role: role, out: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()
	go h.writeLoop(c)
	utils.InfoLogger.WithField("role", role).Info("Dashboard client connected")
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		c.stop()
		conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues e for every client and returns without waiting on sockets.
// A client whose queue is full is dropped.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.RLock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.out <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		utils.ErrorLogger.WithField("role", c.role).Warn("Dropping dashboard client: send queue full")
		h.Unregister(c.conn)
	}
	return nil
}

// CloseAll disconnects every client; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn, c := range h.clients {
		c.stop()
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]*client)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}
