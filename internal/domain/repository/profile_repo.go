package repository

import (
	"context"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/google/uuid"
)

// ProfileRepository определяет методы для работы с профилями пользователей
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	// ListActiveByAudience возвращает активные профили указанной группы.
	// AudienceAmbos возвращает всех активных пользователей.
	ListActiveByAudience(ctx context.Context, audience string) ([]entity.Profile, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Profile, error)
}
