package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Client represents a websocket connection bound to a user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
}

type delivery struct {
	userID  uuid.UUID
	payload []byte
}

// Hub fans out payloads to every open connection of a user.
// All map access happens on the run goroutine.
type Hub struct {
	register      chan *Client
	unregister    chan *Client
	deliver       chan delivery
	clientsByUser map[uuid.UUID]map[*Client]bool
}

// NewHub creates and starts a new Hub loop.
func NewHub() *Hub {
	h := &Hub{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		deliver:       make(chan delivery, sendBuffer),
		clientsByUser: make(map[uuid.UUID]map[*Client]bool),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			set, ok := h.clientsByUser[c.userID]
			if !ok {
				set = make(map[*Client]bool)
				h.clientsByUser[c.userID] = set
			}
			set[c] = true
		case c := <-h.unregister:
			h.drop(c)
		case d := <-h.deliver:
			for c := range h.clientsByUser[d.userID] {
				select {
				case c.send <- d.payload:
				default:
					// Slow client: disconnect rather than block the hub.
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	set, ok := h.clientsByUser[c.userID]
	if !ok {
		return
	}
	if _, exists := set[c]; !exists {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clientsByUser, c.userID)
	}
}

// NotifyUser queues a payload for all connected clients of a given user.
// It never blocks the caller; payloads are dropped when the hub is saturated.
func (h *Hub) NotifyUser(userID uuid.UUID, payload []byte) {
	if h == nil {
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, payload: payload}:
	default:
		slog.Warn("websocket hub saturated, dropping notification", "userId", userID)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers the client.
// The caller must authenticate and set userId in the gin context.
func ServeWS(h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get("userId")
		uid, isUUID := userID.(uuid.UUID)
		if !ok || !isUUID || uid == uuid.Nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "err", err)
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), userID: uid}
		h.register <- client

		go client.readPump()
		client.writePump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
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

func (c *Client) writePump() {
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
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
