package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is the frame exchanged with connected portal clients.
type Message struct {
	Type      string                 `json:"type"`
	Topic     string                 `json:"topic,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client message types.
const (
	MessageTypeEvent     = "event"
	MessageTypeSubscribe = "subscribe"
	MessageTypeStatus    = "status"
)

// Manager handles WebSocket connections and routes financing events
// to the parties that subscribed to them.
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	hub         *hub
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection represents a single connected portal client.
type Connection struct {
	ID           string
	AuthorityID  string
	Topics       []string
	Conn         *websocket.Conn
	Send         chan Message
	LastActivity time.Time
	mu           sync.Mutex
	closed       bool
}

// trySend queues a message unless the connection is closed or its buffer
// is full.
func (c *Connection) trySend(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once.
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

type hub struct {
	connections map[*Connection]bool
	broadcast   chan Message
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
	logger      *zap.Logger
}

// NewManager creates a WebSocket manager and starts its hub loop.
func NewManager(logger *zap.Logger) *Manager {
	h := &hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan Message, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
		logger:      logger,
	}

	go h.run()

	return &Manager{
		connections: make(map[string]*Connection),
		hub:         h,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and registers the client under
// the authenticated authority.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, authorityID string) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		AuthorityID:  authorityID,
		Conn:         conn,
		Send:         make(chan Message, 256),
		LastActivity: time.Now(),
	}

	m.hub.register <- connection

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.hub.unregister <- conn
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		err := conn.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		conn.mu.Lock()
		conn.LastActivity = time.Now()
		conn.mu.Unlock()

		m.handleMessage(conn, &msg)
	}
}

func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) handleMessage(conn *Connection, msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		m.handleSubscribe(conn, msg)
	default:
		m.logger.Debug("unknown websocket message type", zap.String("type", msg.Type))
	}
}

// handleSubscribe records the contract and equipment topics the client
// wants pushed to it.
func (m *Manager) handleSubscribe(conn *Connection, msg *Message) {
	if topics, ok := msg.Data["topics"].([]interface{}); ok {
		var subscribed []string
		for _, topic := range topics {
			if str, ok := topic.(string); ok {
				subscribed = append(subscribed, str)
			}
		}

		conn.mu.Lock()
		conn.Topics = subscribed
		conn.mu.Unlock()
	}

	response := Message{
		Type:      MessageTypeStatus,
		Data:      map[string]interface{}{"status": "subscribed", "connection_id": conn.ID},
		Timestamp: time.Now(),
	}

	if !conn.trySend(response) {
		// Buffer full means the client stopped draining; let the hub tear
		// the connection down so Send is closed exactly once.
		m.hub.unregister <- conn
	}
}

func (h *hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
			h.logger.Debug("websocket connection registered",
				zap.String("connection_id", conn.ID),
				zap.String("authority_id", conn.AuthorityID))

		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.closeSend()
				h.logger.Debug("websocket connection unregistered",
					zap.String("connection_id", conn.ID))
			}

		case message := <-h.broadcast:
			for conn := range h.connections {
				if !conn.trySend(message) {
					conn.closeSend()
					delete(h.connections, conn)
				}
			}

		case <-h.stop:
			for conn := range h.connections {
				conn.closeSend()
				delete(h.connections, conn)
			}
			return
		}
	}
}

// SendToAuthority delivers a message to every connection the authority
// holds.
func (m *Manager) SendToAuthority(authorityID string, message Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for _, conn := range m.connections {
		if conn.AuthorityID != authorityID {
			continue
		}
		if conn.trySend(message) {
			sent++
		}
	}

	if sent == 0 {
		return fmt.Errorf("authority not connected")
	}
	return nil
}

// SendToTopic delivers a message to every connection subscribed to the
// topic.
func (m *Manager) SendToTopic(topic string, message Message) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	message.Topic = topic
	sent := 0
	for _, conn := range m.connections {
		if conn.subscribedTo(topic) && conn.trySend(message) {
			sent++
		}
	}

	return sent
}

func (c *Connection) subscribedTo(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Broadcast queues a message for every connected client.
func (m *Manager) Broadcast(message Message) error {
	select {
	case m.hub.broadcast <- message:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// ConnectionCount returns the number of active connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Close shuts down the hub and drops every connection.
func (m *Manager) Close() {
	close(m.hub.stop)

	m.mu.Lock()
	for _, conn := range m.connections {
		conn.Conn.Close()
	}
	m.connections = make(map[string]*Connection)
	m.mu.Unlock()
}
