package websocket

import (
	"sync"
	"time"
)

// HubMetrics содержит счётчики realtime-канала для /health
type HubMetrics struct {
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesDropped   int64
	clusterReceived   int64
	connectionErrors  int64
	startTime         time.Time

	mu sync.RWMutex
}

// NewHubMetrics создает новый экземпляр метрик Hub
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{startTime: time.Now()}
}

func (m *HubMetrics) connectionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConnections++
	m.activeConnections++
}

func (m *HubMetrics) connectionClosed(failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConnections > 0 {
		m.activeConnections--
	}
	if failed {
		m.connectionErrors++
	}
}

func (m *HubMetrics) addSent(delivered, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent += int64(delivered)
	m.messagesDropped += int64(dropped)
}

func (m *HubMetrics) addClusterReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusterReceived++
}

// Snapshot возвращает копию счётчиков
func (m *HubMetrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"total_connections":  m.totalConnections,
		"active_connections": m.activeConnections,
		"messages_sent":      m.messagesSent,
		"messages_dropped":   m.messagesDropped,
		"cluster_received":   m.clusterReceived,
		"connection_errors":  m.connectionErrors,
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}
