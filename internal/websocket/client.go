package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения. Клиент шлёт только служебные события.
	maxMessageSize = 512

	// Размер буфера по умолчанию для канала отправки сообщений клиенту
	defaultClientBufferSize = 64

	// Максимальное количество предупреждений о переполнении буфера до отключения
	maxBufferWarnings = 3

	registrationTimeout = 5 * time.Second
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// MessageHandler обрабатывает входящее сообщение клиента.
// Возвращённая ошибка закрывает соединение.
type MessageHandler func(message []byte, client *Client) error

// Client является посредником между WebSocket соединением и hub.
type Client struct {
	// ID пользователя (uuid профиля)
	UserID string

	// Уникальный ID для каждого соединения (вкладки)
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool

	// Время последней активности (unix nano)
	lastActivity atomic.Int64

	// Канал для ожидания завершения регистрации
	registrationComplete chan struct{}

	// Счетчик предупреждений о переполнении буфера
	bufferWarningCount int32
	bufferWarningMutex sync.Mutex
}

// NewClient создает нового клиента. bufferSize <= 0 означает размер по умолчанию.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = defaultClientBufferSize
	}
	c := &Client{
		hub:                  hub,
		conn:                 conn,
		send:                 make(chan []byte, bufferSize),
		UserID:               userID,
		ConnectionID:         uuid.New().String(),
		registrationComplete: make(chan struct{}, 1),
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity возвращает время последней активности клиента
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(messageHandler MessageHandler) {
	defer func() {
		log.Printf("[WebSocket] Read pump stopped for UserID: %s, ConnID: %s", c.UserID, c.ConnectionID)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
			}
			break
		}

		c.touch()

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			log.Printf("[WebSocket] Handler error (UserID: %s, ConnID: %s): %v. Closing connection.", c.UserID, c.ConnectionID, handlerErr)
			break
		}

		// Клиент жив и читает: сбрасываем счётчик переполнений
		c.resetBufferWarningCount()
	}
}

// safeHandleMessage вызывает обработчик с recover
func safeHandleMessage(message []byte, client *Client, messageHandler MessageHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WebSocket] PANIC recovered in message handler for UserID: %s, ConnID: %s. Panic: %v\n%s",
				client.UserID, client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler == nil {
		return nil
	}
	return messageHandler(message, client)
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// hub закрыл канал клиента
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				log.Printf("[WebSocket] NextWriter error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				return
			}
			if _, err := w.Write(message); err != nil {
				log.Printf("[WebSocket] Write error (UserID: %s, ConnID: %s, type: %s): %v",
					c.UserID, c.ConnectionID, messageTypeFromBytes(message), err)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartPumps регистрирует клиента в hub и запускает горутины чтения и записи
func (c *Client) StartPumps(messageHandler MessageHandler) {
	if c.UserID == "" || c.hub == nil {
		log.Printf("[WebSocket] client without UserID or hub, closing connection")
		c.conn.Close()
		return
	}

	if !c.hub.RegisterSync(c, registrationTimeout) {
		log.Printf("[WebSocket] timeout waiting for client %s registration", c.UserID)
		c.conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(messageHandler)
}

// trySend кладёт сообщение в буфер клиента без блокировки.
// Возвращает false, если канал закрыт или буфер переполнен.
func (c *Client) trySend(message []byte) (ok bool) {
	if c.sendClosed.Load() {
		return false
	}
	defer func() {
		// Канал мог быть закрыт между проверкой и отправкой
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) incrementBufferWarningCount() int32 {
	c.bufferWarningMutex.Lock()
	defer c.bufferWarningMutex.Unlock()
	c.bufferWarningCount++
	return c.bufferWarningCount
}

func (c *Client) resetBufferWarningCount() {
	c.bufferWarningMutex.Lock()
	defer c.bufferWarningMutex.Unlock()
	c.bufferWarningCount = 0
}

// CloseSend безопасно закрывает канал send (только один раз).
// Возвращает true, если канал был закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// IsSendClosed проверяет, закрыт ли канал send
func (c *Client) IsSendClosed() bool {
	return c.sendClosed.Load()
}

// messageTypeFromBytes пытается извлечь тип сообщения из JSON
func messageTypeFromBytes(message []byte) string {
	var event struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(message, &event) == nil && event.Type != "" {
		return event.Type
	}
	return "unknown"
}
