package pipeline

import (
	"sync"

	"github.com/gorilla/websocket"

	"blend-quality-service/internal/logging"
)

// maxConnsPerPlant caps dashboard connections per plant.
const maxConnsPerPlant = 10

// WebSocketManager tracks dashboard connections per plant and pushes
// compliance alerts to them.
type WebSocketManager struct {
	connections map[string]map[*websocket.Conn]bool // plant -> set of connections
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewWebSocketManager(logger *logging.Logger) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a WebSocket connection for a plant.
func (m *WebSocketManager) AddConnection(plant string, conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.connections[plant]; !exists {
		m.connections[plant] = make(map[*websocket.Conn]bool)
	}
	if len(m.connections[plant]) >= maxConnsPerPlant {
		m.logger.Warnf("Max connections reached for plant %s", plant)
		return
	}
	m.connections[plant][conn] = true
	m.logger.Infof("Added WebSocket connection for plant %s (total: %d)", plant, len(m.connections[plant]))
}

// RemoveConnection removes a WebSocket connection.
func (m *WebSocketManager) RemoveConnection(plant string, conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if conns, exists := m.connections[plant]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.connections, plant)
		}
		m.logger.Infof("Removed WebSocket connection for plant %s (remaining: %d)", plant, len(conns))
	}
}

// SendToPlant sends a message to all connections subscribed to a plant.
func (m *WebSocketManager) SendToPlant(plant string, message []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	conns, exists := m.connections[plant]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			m.logger.Errorf("Failed to send WebSocket message for plant %s: %v", plant, err)
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(m.connections, plant)
	}
}
