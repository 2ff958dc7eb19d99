package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/manasa1349/payment-gateway-task/utils"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn       *websocket.Conn
	merchantID string
	send       chan []byte
}

// Hub holds dashboard websocket clients keyed by merchant. A message is
// only written to connections of the merchant it belongs to. Each client
// has its own writer, so Publish never waits on a socket.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

func (h *Hub) Register(conn *websocket.Conn, merchantID string) {
	c := &client{conn: conn, merchantID: merchantID, send: make(chan []byte, sendBuffer)}
	h.mutex.Lock()
	h.clients[conn] = c
	h.mutex.Unlock()
	go h.writePump(c)
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.remove(conn)
}

// remove must be called with the hub lock held.
func (h *Hub) remove(conn *websocket.Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish delivers to local clients. It satisfies services.LivePublisher.
func (h *Hub) Publish(_ context.Context, merchantID, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling live event %s: %v", event, err)
		return
	}
	h.broadcast(merchantID, payload)
}

// broadcast queues payload for the merchant's clients. A client whose
// buffer is full is dropped.
func (h *Hub) broadcast(merchantID string, payload []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		if c.merchantID != merchantID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			utils.ErrorLogger.WithField("merchant_id", merchantID).Warn("Dropping slow live client")
			h.remove(conn)
		}
	}
}

func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.WithField("merchant_id", c.merchantID).Warnf("Dropping live client: %v", err)
			h.Unregister(c.conn)
			return
		}
	}
}

// Serve registers conn and blocks until the client disconnects.
func (h *Hub) Serve(conn *websocket.Conn, merchantID string) {
	h.Register(conn, merchantID)
	defer h.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
