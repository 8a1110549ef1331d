package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
)

// UserService предоставляет методы для работы с профилями пользователей
type UserService struct {
	profileRepo repository.ProfileRepository
	cacheRepo   repository.CacheRepository
	cacheTTL    time.Duration
}

// NewUserService создает новый сервис пользователей
func NewUserService(profileRepo repository.ProfileRepository, cacheRepo repository.CacheRepository, cacheTTL time.Duration) *UserService {
	return &UserService{
		profileRepo: profileRepo,
		cacheRepo:   cacheRepo,
		cacheTTL:    cacheTTL,
	}
}

func profileCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("profile:%s", id)
}

// GetProfile возвращает профиль по ID (subject токена) с кешированием.
// Неактивный или отсутствующий профиль - ErrUnauthorized.
func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	key := profileCacheKey(id)

	var cached entity.Profile
	if err := s.cacheRepo.GetJSON(key, &cached); err == nil {
		if !cached.Active {
			return nil, fmt.Errorf("%w: profile is inactive", apperrors.ErrUnauthorized)
		}
		return &cached, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[UserService] Ошибка чтения кеша профиля %s: %v", id, err)
	}

	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile not found", apperrors.ErrUnauthorized)
		}
		return nil, err
	}

	if err := s.cacheRepo.SetJSON(key, profile, s.cacheTTL); err != nil {
		log.Printf("[UserService] Ошибка записи кеша профиля %s: %v", id, err)
	}

	if !profile.Active {
		return nil, fmt.Errorf("%w: profile is inactive", apperrors.ErrUnauthorized)
	}
	return profile, nil
}

// normalizePagination приводит параметры пагинации к допустимым значениям и возвращает offset
func normalizePagination(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, (page - 1) * pageSize
}
