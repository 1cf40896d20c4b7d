// Package ws serves live conversations over websockets. Every connection is
// bound to one (bot, session) pair and receives the results of all turns of
// that pair, whichever connection sent them.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/lock"
	"github.com/larasedova/alpina-gpt-builder/internal/log"
)

// ErrBufferFull is returned when the send buffer of a connection is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrNotRegistered is returned when sending to a connection the hub no longer tracks.
var ErrNotRegistered = errors.New("connection not registered")

const sendBufferSize = 64

// Connection represents a single websocket connection.
type Connection struct {
	ID          string
	BotID       int64
	UserSession string
	Conn        *websocket.Conn
	Send        chan []byte
	mu          sync.Mutex
}

// key is the conversation the connection is bound to.
func (c *Connection) key() string {
	return lock.TurnKey(c.BotID, c.UserSession)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

type keyedMessage struct {
	key  string
	data []byte
}

// Hub manages all websocket connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Conversations maps a (bot, session) key to its connection IDs
	conversations map[string]map[string]bool

	unregister chan *Connection
	broadcast  chan keyedMessage
	done       chan struct{}

	// ctx is canceled when Run returns
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctx:           ctx,
		cancel:        cancel,
		connections:   make(map[string]*Connection),
		conversations: make(map[string]map[string]bool),
		unregister:    make(chan *Connection),
		broadcast:     make(chan keyedMessage, 256),
		done:          make(chan struct{}),
		logger:        log.Component("WSHub"),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// remaining connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.cancel()
			h.mu.Lock()
			close(h.done)
			for id, conn := range h.connections {
				close(conn.Send)
				delete(h.connections, id)
			}
			h.conversations = make(map[string]map[string]bool)
			h.mu.Unlock()
			return

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				key := conn.key()
				if ids := h.conversations[key]; ids != nil {
					delete(ids, conn.ID)
					if len(ids) == 0 {
						delete(h.conversations, key)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Debug("Connection unregistered", zap.String("conn_id", conn.ID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.conversations[msg.key] {
				conn, exists := h.connections[connID]
				if !exists {
					continue
				}
				select {
				case conn.Send <- msg.data:
				default:
					h.logger.Warn("Connection buffer full, closing", zap.String("conn_id", connID))
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Context returns a context that is canceled once the hub stops.
func (h *Hub) Context() context.Context {
	return h.ctx
}

// NewConnection creates a connection bound to (botID, userSession). It is not
// registered yet.
func (h *Hub) NewConnection(ws *websocket.Conn, botID int64, userSession string) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		BotID:       botID,
		UserSession: userSession,
		Conn:        ws,
		Send:        make(chan []byte, sendBufferSize),
	}
}

// Register registers a connection with the hub. It reports false once the hub
// has stopped.
func (h *Hub) Register(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}

	h.connections[conn.ID] = conn
	key := conn.key()
	if h.conversations[key] == nil {
		h.conversations[key] = make(map[string]bool)
	}
	h.conversations[key][conn.ID] = true
	h.logger.Debug("Connection registered", zap.String("conn_id", conn.ID), zap.String("conversation", key))
	return true
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BroadcastJSON sends v to every connection of the (bot, session) pair.
func (h *Hub) BroadcastJSON(botID int64, userSession string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- keyedMessage{key: lock.TurnKey(botID, userSession), data: data}:
	case <-h.done:
	}
	return nil
}

// SendJSONToConnection sends v to a single connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	// The hub closes Send on unregister; only write while it is still registered.
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrNotRegistered
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ConversationCount returns the number of (bot, session) pairs with connections.
func (h *Hub) ConversationCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conversations)
}
