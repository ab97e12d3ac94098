package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub is the presence registry: it maps a user identity to its live
// connection and delivers outbound events. A later register for the same
// user silently replaces the earlier mapping; the replaced socket keeps
// draining until its own read loop exits.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // user_id -> connection
	logger      zerolog.Logger
}

// NewHub creates an empty presence registry.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger,
	}
}

// Register maps a user to a connection. Last writer wins.
func (h *Hub) Register(userID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, existed := h.connections[userID]; !existed {
		activeConnections.Inc()
	}
	h.connections[userID] = conn
	h.logger.Info().Str("user_id", userID).Str("display_name", conn.DisplayName).Msg("connection registered")
}

// Unregister removes the mapping for a user, but only if it still points at
// the given connection, and reports whether it did. A stale read-loop exit
// must not evict a newer session, and its caller must not tear down session
// state that the newer connection still owns.
func (h *Hub) Unregister(userID string, conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.connections[userID]; exists && current == conn {
		delete(h.connections, userID)
		activeConnections.Dec()
		h.logger.Info().Str("user_id", userID).Msg("connection unregistered")
		return true
	}
	return false
}

// IsOnline reports whether a user currently has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.connections[userID]
	return exists
}

// Lookup returns the live connection for a user, if any.
func (h *Hub) Lookup(userID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, exists := h.connections[userID]
	return conn, exists
}

// SendToUser delivers a message to a specific user.
func (h *Hub) SendToUser(userID string, msg Message) error {
	conn, exists := h.Lookup(userID)
	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// SendToEach delivers a message to every listed user, skipping offline ones.
func (h *Hub) SendToEach(userIDs []string, msg Message) {
	for _, userID := range userIDs {
		if err := h.SendToUser(userID, msg); err != nil && err != ErrConnectionNotFound {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("send failed")
		}
	}
}

// Keepalive timing. Pings must outpace the read deadline or an idle but
// healthy session gets dropped the moment the first deadline lapses.
const (
	writeWait         = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = (defaultPongWait * 9) / 10
)

// Connection represents a WebSocket connection with a buffered send queue.
type Connection struct {
	UserID      string
	DisplayName string

	conn       *websocket.Conn
	sendCh     chan Message
	mu         sync.Mutex
	closed     bool
	logger     zerolog.Logger
	pongWait   time.Duration
	pingPeriod time.Duration
}

// NewConnection wraps a WebSocket connection for a user.
func NewConnection(conn *websocket.Conn, userID, displayName string, logger zerolog.Logger) *Connection {
	return &Connection{
		UserID:      userID,
		DisplayName: displayName,
		conn:        conn,
		sendCh:      make(chan Message, 256),
		logger:      logger,
		pongWait:    defaultPongWait,
		pingPeriod:  defaultPingPeriod,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends messages from the send queue until the queue closes, and
// pings the peer often enough that the pongs keep extending ReadPump's
// deadline on an otherwise quiet session.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Str("user_id", c.UserID).Msg("write error")
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

// ReadPump receives messages and calls the handler until the socket drops.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Str("user_id", c.UserID).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "User connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
