package repository

import (
	"time"
)

// CacheRepository хранит короткоживущее состояние в Redis:
// статусы соответствия, сессии прохождения, блокировки подтверждения и кеш профилей.
// Отсутствующий ключ возвращается как apperrors.ErrNotFound.
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Delete(key string) error
	// SetNX используется как блокировка: true, если ключ был установлен этим вызовом
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
	// CompareAndDelete снимает блокировку, только если её значение совпадает с токеном владельца
	CompareAndDelete(key string, expected string) (bool, error)
}
