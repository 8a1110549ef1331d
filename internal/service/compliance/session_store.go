package compliance

import (
	"errors"
	"fmt"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
)

// SessionStore хранит сессии прохождения и блокировки подтверждения в кеше
type SessionStore struct {
	cache repository.CacheRepository
	ttl   time.Duration
}

// NewSessionStore создает хранилище сессий
func NewSessionStore(cache repository.CacheRepository, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: cache, ttl: ttl}
}

// Load возвращает сессию или apperrors.ErrNotFound
func (s *SessionStore) Load(userID, contentID uuid.UUID) (*Session, error) {
	var session Session
	if err := s.cache.GetJSON(SessionKey(userID, contentID), &session); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load compliance session: %w", err)
	}
	if session.Answers == nil {
		session.Answers = make(map[int]string)
	}
	return &session, nil
}

// Save сохраняет сессию с продлением TTL
func (s *SessionStore) Save(session *Session) error {
	if err := s.cache.SetJSON(SessionKey(session.UserID, session.ContentID), session, s.ttl); err != nil {
		return fmt.Errorf("failed to save compliance session: %w", err)
	}
	return nil
}

// AcquireConfirmLock захватывает блокировку подтверждения. Возвращает токен владельца.
// Если блокировка занята, возвращает apperrors.ErrConfirmationInProgress.
func (s *SessionStore) AcquireConfirmLock(userID, contentID uuid.UUID, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := s.cache.SetNX(ConfirmLockKey(userID, contentID), token, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to acquire confirm lock: %w", err)
	}
	if !ok {
		return "", apperrors.ErrConfirmationInProgress
	}
	return token, nil
}

// ReleaseConfirmLock снимает блокировку, только если она всё ещё принадлежит владельцу токена
func (s *SessionStore) ReleaseConfirmLock(userID, contentID uuid.UUID, token string) error {
	_, err := s.cache.CompareAndDelete(ConfirmLockKey(userID, contentID), token)
	return err
}
