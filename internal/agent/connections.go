package agent

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks live WebSocket connections per thread.
type ConnectionManager struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewConnectionManager creates an empty connection registry.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		active: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Register adds a connection for threadID. Several tabs may share a thread.
func (m *ConnectionManager) Register(threadID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[threadID]; !ok {
		m.active[threadID] = make(map[*websocket.Conn]struct{})
	}
	m.active[threadID][conn] = struct{}{}
	slog.Info("Chat connection registered", "thread_id", threadID)
}

// Unregister removes conn from threadID.
func (m *ConnectionManager) Unregister(threadID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[threadID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; !exists {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(m.active, threadID)
	}
	slog.Info("Chat connection unregistered", "thread_id", threadID)
}

// Count returns the number of live connections for threadID.
func (m *ConnectionManager) Count(threadID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[threadID])
}

// CloseThread terminates every connection of threadID. It is the TTL
// worker's cleanup callback.
func (m *ConnectionManager) CloseThread(threadID string) {
	m.mu.Lock()
	conns := m.active[threadID]
	delete(m.active, threadID)
	m.mu.Unlock()

	for conn := range conns {
		if err := conn.Close(websocket.StatusNormalClosure, "session expired"); err != nil {
			slog.Debug("Failed to close websocket", "error", err, "thread_id", threadID)
		}
	}
	if len(conns) > 0 {
		slog.Info("Chat connections closed", "thread_id", threadID, "count", len(conns))
	}
}
