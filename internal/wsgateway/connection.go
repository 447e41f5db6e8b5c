package wsgateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Connection represents a WebSocket client of the gateway
type Connection struct {
	ID     string
	UserID string
	Conn   *websocket.Conn

	send          chan []byte
	done          chan struct{}
	closeOnce     sync.Once
	mu            sync.RWMutex
	subscriptions map[models.AssetClass]bool
	lastPong      time.Time
	createdAt     time.Time
}

// NewConnection creates a connection with a send buffer of bufferSize
// messages
func NewConnection(id string, userID string, conn *websocket.Conn, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	now := time.Now()
	return &Connection{
		ID:            id,
		UserID:        userID,
		Conn:          conn,
		send:          make(chan []byte, bufferSize),
		done:          make(chan struct{}),
		subscriptions: make(map[models.AssetClass]bool),
		lastPong:      now,
		createdAt:     now,
	}
}

// Subscribe subscribes to snapshots of an asset class
func (c *Connection) Subscribe(class models.AssetClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[class] = true
}

// Unsubscribe stops snapshots of an asset class
func (c *Connection) Unsubscribe(class models.AssetClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, class)
}

// IsSubscribed checks if the connection subscribed to an asset class
func (c *Connection) IsSubscribed(class models.AssetClass) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[class]
}

// Subscriptions returns the subscribed asset classes in stable order
func (c *Connection) Subscriptions() []models.AssetClass {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.AssetClass, 0, len(c.subscriptions))
	for _, class := range models.AllAssetClasses {
		if c.subscriptions[class] {
			out = append(out, class)
		}
	}
	return out
}

// ShouldReceive reports whether snapshots of class go to this connection.
// A connection without subscriptions receives every asset class.
func (c *Connection) ShouldReceive(class models.AssetClass) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[class]
}

// Enqueue queues a message for the write pump without blocking. It returns
// false when the buffer is full or the connection is closed.
func (c *Connection) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// UpdateLastPong records a pong from the client
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// GetLastPong returns the last pong time
func (c *Connection) GetLastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}
