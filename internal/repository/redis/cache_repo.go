package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
)

// KeyPrefix отделяет ключи интранета от других приложений в общем Redis
const KeyPrefix = "intranet:"

// operationTimeout ограничивает одну команду: кеш не должен подвешивать запрос
const operationTimeout = 2 * time.Second

// compareAndDeleteScript удаляет ключ только если значение совпадает (снятие блокировки владельцем)
var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CacheRepo реализует repository.CacheRepository
type CacheRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewCacheRepo создает репозиторий кеша с префиксом KeyPrefix
func NewCacheRepo(client redis.UniversalClient) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for CacheRepo")
	}
	return &CacheRepo{client: client, prefix: KeyPrefix}, nil
}

func (r *CacheRepo) key(k string) string {
	return r.prefix + k
}

func (r *CacheRepo) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), operationTimeout)
}

// SetJSON сериализует значение и сохраняет его с TTL
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %s: %w", key, err)
	}
	ctx, cancel := r.opContext()
	defer cancel()
	return r.client.Set(ctx, r.key(key), data, expiration).Err()
}

// GetJSON читает значение. Повреждённая запись удаляется и считается отсутствующей.
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	ctx, cancel := r.opContext()
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("[CacheRepo] Corrupted value for %s, evicting: %v", key, err)
		if delErr := r.client.Del(ctx, r.key(key)).Err(); delErr != nil {
			log.Printf("[CacheRepo] Failed to evict %s: %v", key, delErr)
		}
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет значение из кеша
func (r *CacheRepo) Delete(key string) error {
	ctx, cancel := r.opContext()
	defer cancel()
	return r.client.Del(ctx, r.key(key)).Err()
}

// SetNX устанавливает значение ключа, только если ключ не существует.
// Возвращает true, если ключ был установлен, false - если ключ уже существовал.
func (r *CacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	return r.client.SetNX(ctx, r.key(key), value, expiration).Result()
}

// CompareAndDelete атомарно удаляет ключ, если его значение равно expected
func (r *CacheRepo) CompareAndDelete(key string, expected string) (bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	deleted, err := compareAndDeleteScript.Run(ctx, r.client, []string{r.key(key)}, expected).Int64()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}
