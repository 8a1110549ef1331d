package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// maxConnectionsPerUser ограничивает число одновременных вкладок одного пользователя
const maxConnectionsPerUser = 5

// Hub хранит подключения пользователей этого экземпляра.
// Один пользователь может держать несколько соединений (вкладки, устройства).
type Hub struct {
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	metrics *HubMetrics
}

// NewHub создает hub. Цикл обработки запускается через Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		done:       make(chan struct{}),
		metrics:    NewHubMetrics(),
	}
}

// Run обрабатывает регистрацию и отключение клиентов до вызова Close
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client, false)
		case <-h.done:
			log.Printf("[Hub] Получен сигнал завершения работы, закрываем %d соединений", h.ClientCount())
			h.cleanupAllClients()
			return
		}
	}
}

// RegisterSync регистрирует клиента и ждёт подтверждения из цикла Run
func (h *Hub) RegisterSync(client *Client, timeout time.Duration) bool {
	select {
	case h.register <- client:
	case <-h.done:
		return false
	}
	select {
	case <-client.registrationComplete:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Unregister ставит клиента в очередь на отключение
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	var evicted *Client
	if len(conns) >= maxConnectionsPerUser {
		evicted = oldestClient(conns)
		delete(conns, evicted)
	}
	conns[client] = struct{}{}
	h.mu.Unlock()

	if evicted != nil {
		log.Printf("[Hub] User %s exceeded %d connections, closing ConnID %s", client.UserID, maxConnectionsPerUser, evicted.ConnectionID)
		h.closeClient(evicted)
		h.metrics.connectionClosed(false)
	}

	h.metrics.connectionOpened()
	log.Printf("[Hub] client %s registered (ConnID: %s)", client.UserID, client.ConnectionID)

	select {
	case client.registrationComplete <- struct{}{}:
	default:
	}
}

func (h *Hub) handleUnregister(client *Client, failed bool) {
	h.mu.Lock()
	conns, ok := h.clients[client.UserID]
	if ok {
		_, ok = conns[client]
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	h.closeClient(client)
	h.metrics.connectionClosed(failed)
	log.Printf("[Hub] client %s unregistered (ConnID: %s)", client.UserID, client.ConnectionID)
}

func (h *Hub) closeClient(client *Client) {
	if client.conn != nil {
		client.conn.Close()
	}
	client.CloseSend()
}

func (h *Hub) cleanupAllClients() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for client := range conns {
			h.closeClient(client)
			h.metrics.connectionClosed(false)
		}
	}
}

// SendToUser кладёт сообщение во все соединения пользователя на этом экземпляре.
// Возвращает true, если хотя бы одно соединение приняло сообщение.
func (h *Hub) SendToUser(userID string, message []byte) bool {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, client := range targets {
		if client.trySend(message) {
			delivered++
			continue
		}
		dropped++
		h.handleSlowClient(client)
	}
	if len(targets) > 0 {
		h.metrics.addSent(delivered, dropped)
	}
	return delivered > 0
}

// handleSlowClient считает переполнения буфера и отключает клиента после порога
func (h *Hub) handleSlowClient(client *Client) {
	count := client.incrementBufferWarningCount()
	if count >= maxBufferWarnings {
		log.Printf("[Hub] Client %s (Conn: %s) exceeded max buffer warnings (%d). Unregistering.", client.UserID, client.ConnectionID, maxBufferWarnings)
		go func() {
			select {
			case h.unregister <- client:
			case <-h.done:
			}
		}()
		return
	}

	log.Printf("[Hub] Sending buffer warning %d/%d to client %s (Conn: %s)", count, maxBufferWarnings, client.UserID, client.ConnectionID)
	warning, _ := json.Marshal(Event{
		Type: EventBufferWarning,
		Data: map[string]interface{}{
			"warning_count": count,
			"max_warnings":  maxBufferWarnings,
		},
	})
	// Если буфер всё ещё полон, предупреждение теряется: решает счётчик
	client.trySend(warning)
}

// ClientCount возвращает общее число соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

// UserConnections возвращает число соединений пользователя
func (h *Hub) UserConnections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Metrics возвращает счётчики hub
func (h *Hub) Metrics() map[string]interface{} {
	m := h.metrics.Snapshot()
	h.mu.RLock()
	m["connected_users"] = len(h.clients)
	h.mu.RUnlock()
	return m
}

// Close останавливает цикл Run и закрывает все соединения
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func oldestClient(conns map[*Client]struct{}) *Client {
	var oldest *Client
	for c := range conns {
		if oldest == nil || c.lastActivity.Load() < oldest.lastActivity.Load() {
			oldest = c
		}
	}
	return oldest
}
