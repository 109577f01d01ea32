package relay

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/mazleon/portfolio-website/internal/metrics"
)

// closer is the part of a websocket connection the manager needs.
type closer interface {
	Close(code websocket.StatusCode, reason string) error
}

// ConnManager tracks the open chat socket of each session. A session has at
// most one socket; a newer one replaces the older.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]closer
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{active: make(map[string]closer)}
}

// Get returns the active connection for a session.
func (m *ConnManager) Get(sessionID string) closer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[sessionID]
}

// Len returns the number of tracked sessions.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Register tracks conn for sessionID, closing any connection it replaces.
func (m *ConnManager) Register(sessionID string, conn closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[sessionID]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	} else if !ok {
		metrics.ActiveSockets.Inc()
	}
	m.active[sessionID] = conn
	slog.Info("Chat socket registered", "session_id", sessionID)
}

// Unregister stops tracking conn. A stale conn that was already replaced is ignored.
func (m *ConnManager) Unregister(sessionID string, conn closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[sessionID]; ok && current == conn {
		delete(m.active, sessionID)
		metrics.ActiveSockets.Dec()
		slog.Info("Chat socket unregistered", "session_id", sessionID)
	}
}

// CloseAll terminates every tracked connection.
func (m *ConnManager) CloseAll(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid, conn := range m.active {
		_ = conn.Close(websocket.StatusGoingAway, reason)
		delete(m.active, sid)
		metrics.ActiveSockets.Dec()
	}
}
