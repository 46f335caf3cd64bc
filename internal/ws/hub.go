// Package ws pushes document lifecycle events to connected browsers.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/metrics"
	"github.com/signetapp/signet/internal/models"
)

// Event types broadcast to clients.
const (
	EventDocumentUpdated    = "document.updated"
	EventRecipientCompleted = "recipient.completed"
	EventDocumentCompleted  = "document.completed"
)

// Message is the JSON envelope every broadcast uses.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one connected browser.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	userID int64
}

// Hub maintains active clients and fans broadcasts out to them. Events
// carry the owning user's ID so each client only sees its own documents.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

type envelope struct {
	userID int64
	data   []byte
}

// NewHub creates a hub that accepts upgrades from origins matching the
// given wildcard patterns. An empty pattern list allows same-host
// requests only, which the gorilla default already enforces.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, pattern := range allowedOrigins {
				if wildcard.Match(pattern, origin) {
					return true
				}
			}
			log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
			return false
		}
	}
	return h
}

// Run drives the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Closing done first unblocks pump goroutines parked on the
			// register/unregister channels.
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				metrics.ActiveSocketConnections.Dec()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.ActiveSocketConnections.Inc()
			log.Debug().Str("client", client.id).Int64("userID", client.userID).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.ActiveSocketConnections.Dec()
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.userID == env.userID {
					clients = append(clients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- env.data:
				default:
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
						metrics.ActiveSocketConnections.Dec()
					}
					h.mu.Unlock()
				}
			}

		case <-pingTicker.C:
			h.broadcastAll(Message{Type: "ping", Data: map[string]int64{"timestamp": time.Now().Unix()}})
		}
	}
}

// HandleWebSocket upgrades the request for an authenticated user.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		id:     fmt.Sprintf("client-%d", time.Now().UnixNano()),
		userID: userID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastDocumentUpdated notifies the owner that a document changed.
func (h *Hub) BroadcastDocumentUpdated(doc *models.Document) {
	h.broadcastTo(doc.UserID, Message{Type: EventDocumentUpdated, Data: doc})
}

// BroadcastRecipientCompleted notifies the owner that a recipient finished.
func (h *Hub) BroadcastRecipientCompleted(ownerID int64, rcp *models.Recipient) {
	h.broadcastTo(ownerID, Message{Type: EventRecipientCompleted, Data: rcp})
}

// BroadcastDocumentCompleted notifies the owner that a document sealed.
func (h *Hub) BroadcastDocumentCompleted(doc *models.Document) {
	h.broadcastTo(doc.UserID, Message{Type: EventDocumentCompleted, Data: doc})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastTo(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}
	select {
	case h.broadcast <- envelope{userID: userID, data: data}:
	default:
		log.Warn().Msg("WebSocket broadcast channel full")
	}
}

func (h *Hub) broadcastAll(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("client", c.id).Msg("WebSocket read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong := Message{Type: "pong", Data: map[string]int64{"timestamp": time.Now().Unix()}}
			if data, err := json.Marshal(pong); err == nil {
				select {
				case c.send <- data:
				default:
				}
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain anything queued behind the first message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				select {
				case msg := <-c.send:
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
