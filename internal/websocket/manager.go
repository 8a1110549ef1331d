package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager доставляет события пользователям и обрабатывает входящие сообщения
type Manager struct {
	hub            *Hub
	relay          *ClusterRelay
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает менеджер. relay может быть nil (один экземпляр API).
func NewManager(hub *Hub, relay *ClusterRelay) *Manager {
	m := &Manager{
		hub:            hub,
		relay:          relay,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(EventPing, func(_ json.RawMessage, client *Client) error {
		m.sendToClient(client, Event{
			Type: EventPong,
			Data: map[string]int64{"timestamp": time.Now().UnixMilli()},
		})
		return nil
	})
	return m
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений.
// Вызывается до запуска сервера.
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("[WebSocketManager] Failed to unmarshal message from %s: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	if err := handler(event.Data, client); err != nil {
		log.Printf("[WebSocketManager] Handler for type '%s' returned error for client %s: %v", event.Type, client.UserID, err)
		return err
	}
	return nil
}

// SendErrorToClient отправляет сообщение об ошибке в конкретное соединение.
// Соединение не закрывается.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	m.sendToClient(client, Event{
		Type: EventServerError,
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func (m *Manager) sendToClient(client *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WebSocketManager] Failed to marshal %s: %v", event.Type, err)
		return
	}
	if !client.trySend(payload) {
		log.Printf("[WebSocketManager] Could not queue %s for client %s (Conn: %s)", event.Type, client.UserID, client.ConnectionID)
	}
}

// SendToUser доставляет событие во все вкладки пользователя на всех экземплярах.
// Отсутствие подключений у пользователя ошибкой не считается.
func (m *Manager) SendToUser(userID uuid.UUID, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal websocket event %s: %w", eventType, err)
	}

	m.hub.SendToUser(userID.String(), payload)

	if m.relay != nil {
		if err := m.relay.Publish(userID.String(), payload); err != nil {
			return fmt.Errorf("failed to publish websocket event %s: %w", eventType, err)
		}
	}
	return nil
}

// GetMetrics возвращает текущие метрики WebSocket-системы
func (m *Manager) GetMetrics() map[string]interface{} {
	metrics := m.hub.Metrics()
	metrics["cluster_enabled"] = m.relay != nil && m.relay.Clustered()
	if m.relay != nil {
		metrics["instance_id"] = m.relay.InstanceID()
	}
	return metrics
}
