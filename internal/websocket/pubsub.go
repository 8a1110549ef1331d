package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// PubSubProvider определяет интерфейс для механизма Pub/Sub между экземплярами
type PubSubProvider interface {
	Publish(channel string, message []byte) error
	// Subscribe возвращает канал сообщений; он закрывается при отмене ctx или Close
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ClusterMessage адресное сообщение, пересылаемое между экземплярами API
type ClusterMessage struct {
	RecipientID string          `json:"recipient_id"`
	InstanceID  string          `json:"instance_id"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NoOpPubSub используется, когда кластерный режим выключен или Redis Pub/Sub недоступен.
// Relay поверх него доставляет события только локальным клиентам.
type NoOpPubSub struct{}

func (p *NoOpPubSub) Publish(channel string, message []byte) error { return nil }

func (p *NoOpPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (p *NoOpPubSub) Close() error { return nil }

// ClusterRelay пересылает события пользователям, подключённым к другим экземплярам
type ClusterRelay struct {
	hub        *Hub
	provider   PubSubProvider
	channel    string
	instanceID string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClusterRelay создает relay поверх провайдера Pub/Sub
func NewClusterRelay(hub *Hub, provider PubSubProvider, channel string) *ClusterRelay {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClusterRelay{
		hub:        hub,
		provider:   provider,
		channel:    channel,
		instanceID: uuid.New().String(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Clustered сообщает, связан ли relay с другими экземплярами
func (r *ClusterRelay) Clustered() bool {
	_, local := r.provider.(*NoOpPubSub)
	return !local
}

// InstanceID возвращает идентификатор этого экземпляра
func (r *ClusterRelay) InstanceID() string {
	return r.instanceID
}

// Start подписывается на канал и доставляет чужие сообщения локальным клиентам
func (r *ClusterRelay) Start() error {
	msgCh, err := r.provider.Subscribe(r.ctx, r.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to cluster channel %s: %w", r.channel, err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for raw := range msgCh {
			r.deliver(raw)
		}
	}()

	log.Printf("[ClusterRelay] Instance %s subscribed to '%s'", r.instanceID, r.channel)
	return nil
}

func (r *ClusterRelay) deliver(raw []byte) {
	var msg ClusterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[ClusterRelay] Invalid cluster message: %v", err)
		return
	}
	if msg.InstanceID == r.instanceID || msg.RecipientID == "" {
		return
	}
	r.hub.metrics.addClusterReceived()
	r.hub.SendToUser(msg.RecipientID, msg.Payload)
}

// Publish отправляет готовое событие остальным экземплярам
func (r *ClusterRelay) Publish(userID string, payload []byte) error {
	data, err := json.Marshal(ClusterMessage{
		RecipientID: userID,
		InstanceID:  r.instanceID,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cluster message: %w", err)
	}
	return r.provider.Publish(r.channel, data)
}

// Stop отписывается от канала и ждёт завершения доставки
func (r *ClusterRelay) Stop() {
	r.cancel()
	r.wg.Wait()
	if err := r.provider.Close(); err != nil {
		log.Printf("[ClusterRelay] Error closing pubsub provider: %v", err)
	}
}

// RedisPubSub реализует PubSubProvider с использованием Redis
type RedisPubSub struct {
	client redis.UniversalClient
	ctx    context.Context
	cancel context.CancelFunc

	// channel -> *redis.PubSub
	subscriptions sync.Map
	mu            sync.Mutex
}

// NewRedisPubSub создает провайдер поверх существующего клиента Redis
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}

	ctx, cancelCheck := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCheck()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("provided redis client failed ping check: %w", err)
	}

	ctxPubSub, cancelPubSub := context.WithCancel(context.Background())
	return &RedisPubSub{
		client: client,
		ctx:    ctxPubSub,
		cancel: cancelPubSub,
	}, nil
}

// Publish публикует сообщение в указанный канал
func (p *RedisPubSub) Publish(channel string, message []byte) error {
	if err := p.client.Publish(p.ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на указанный канал Redis
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subscriptions.Load(channel); ok {
		return nil, fmt.Errorf("already subscribed to Redis channel %s", channel)
	}

	pubsub := p.client.Subscribe(p.ctx, channel)
	if _, err := pubsub.Receive(p.ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}
	p.subscriptions.Store(channel, pubsub)

	msgCh := make(chan []byte, 100)
	go func() {
		defer func() {
			p.subscriptions.Delete(channel)
			pubsub.Close()
			close(msgCh)
			log.Printf("[RedisPubSub] Unsubscribed from channel '%s'", channel)
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-p.ctx.Done():
					return
				case <-ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgCh, nil
}

// Close закрывает активные подписки. Клиент Redis принадлежит вызывающему коду.
func (p *RedisPubSub) Close() error {
	p.cancel()
	p.subscriptions.Range(func(key, value interface{}) bool {
		if sub, ok := value.(*redis.PubSub); ok {
			sub.Close()
		}
		return true
	})
	return nil
}
