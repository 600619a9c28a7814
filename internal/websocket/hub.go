// Package websocket streams settlement progress to the browser that is
// waiting on the payment-status page.
package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alisproject111/tripeasy-client/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSettlementUpdate MessageType = "settlement_update"
	MessageTypeSettlementDone   MessageType = "settlement_done"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType             `json:"type"`
	OrderID   string                  `json:"orderId"`
	Status    models.SettlementStatus `json:"status"`
	Timestamp int64                   `json:"timestamp"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	orderID string
}

// Hub manages WebSocket connections per order
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.orderID] == nil {
				h.clients[client.orderID] = make(map[*Client]bool)
			}
			h.clients[client.orderID][client] = true
			log.Printf("WebSocket: Client registered for order %s (total: %d)", client.orderID, len(h.clients[client.orderID]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.orderID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.orderID)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("WebSocket: Failed to marshal message: %v", err)
				continue
			}

			h.mu.RLock()
			clients := h.clients[message.OrderID]
			h.mu.RUnlock()

			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.mu.Lock()
					delete(h.clients[message.OrderID], client)
					close(client.send)
					h.mu.Unlock()
				}
			}
		}
	}
}

// BroadcastStatus pushes a settlement status change to every client
// watching the order. Terminal phases are marked done so the browser can
// stop listening.
func (h *Hub) BroadcastStatus(status models.SettlementStatus) {
	msgType := MessageTypeSettlementUpdate
	if status.Phase.Terminal() {
		msgType = MessageTypeSettlementDone
	}

	h.broadcast <- &Message{
		Type:      msgType,
		OrderID:   status.OrderID,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	}
}

// GetClientCount returns the number of clients watching an order
func (h *Hub) GetClientCount(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orderID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ServeWS upgrades the request and attaches the client to the order's
// update stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, orderID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket: Upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 16),
		orderID: orderID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
