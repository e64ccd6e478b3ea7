// Package realtime pushes access-code events to the waiter panels of a restaurant.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-access/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn         *websocket.Conn
	restaurantID uint
	waiterID     uint
	send         chan []byte
}

// Hub tracks connected waiter panels. The zero value is not usable; use NewHub.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Serve registers conn for restaurantID and blocks until the peer goes away.
func (h *Hub) Serve(conn *websocket.Conn, restaurantID, waiterID uint) {
	c := &client{
		conn:         conn,
		restaurantID: restaurantID,
		waiterID:     waiterID,
		send:         make(chan []byte, sendBuffer),
	}
	h.register(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()

	c.readLoop()
	h.unregister(c)
	<-done
	conn.Close()
}

// Publish implements services.EventPublisher. Slow clients drop messages rather
// than stall the publisher.
func (h *Hub) Publish(restaurantID uint, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.restaurantID != restaurantID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			utils.InfoLogger.WithFields(logrus.Fields{
				"restaurant_id": restaurantID,
				"waiter_id":     c.waiterID,
				"event":         event,
			}).Warn("waiter panel too slow, dropping event")
		}
	}
}

// Clients counts panels connected for restaurantID.
func (h *Hub) Clients(restaurantID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if c.restaurantID == restaurantID {
			n++
		}
	}
	return n
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": c.restaurantID,
		"waiter_id":     c.waiterID,
	}).Info("waiter panel connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": c.restaurantID,
		"waiter_id":     c.waiterID,
	}).Info("waiter panel disconnected")
}

// Panels only listen; inbound frames are read to service control messages.
func (c *client) readLoop() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Unblocks readLoop so Serve can unregister.
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
