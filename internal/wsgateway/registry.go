package wsgateway

import (
	"sync"
)

// ConnectionRegistry tracks active connections by ID and by user
type ConnectionRegistry struct {
	connections map[string]*Connection            // connection_id -> connection
	byUser      map[string]map[string]*Connection // user_id -> connection_id -> connection
	mu          sync.RWMutex
}

// NewConnectionRegistry creates a new connection registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[string]*Connection),
		byUser:      make(map[string]map[string]*Connection),
	}
}

// Add adds a connection to the registry unless limit connections are already
// registered. A non-positive limit means no limit.
func (r *ConnectionRegistry) Add(conn *Connection, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit > 0 && len(r.connections) >= limit {
		return false
	}

	r.connections[conn.ID] = conn
	if r.byUser[conn.UserID] == nil {
		r.byUser[conn.UserID] = make(map[string]*Connection)
	}
	r.byUser[conn.UserID][conn.ID] = conn
	return true
}

// Remove removes a connection and reports whether it was registered
func (r *ConnectionRegistry) Remove(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[connectionID]
	if !exists {
		return false
	}
	delete(r.connections, connectionID)

	if userConns, ok := r.byUser[conn.UserID]; ok {
		delete(userConns, connectionID)
		if len(userConns) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	return true
}

// Get retrieves a connection by ID
func (r *ConnectionRegistry) Get(connectionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.connections[connectionID]
	return conn, exists
}

// GetAll returns every registered connection
func (r *ConnectionRegistry) GetAll() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		out = append(out, conn)
	}
	return out
}

// Count returns the number of connections
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// CountByUser returns the number of connections for a user
func (r *ConnectionRegistry) CountByUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}
