package repository

import (
	"context"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/google/uuid"
)

// MandatoryContentFilters определяет фильтры для списка в админке
type MandatoryContentFilters struct {
	Active   *bool  // nil - любые
	Audience string // colaboradores, franqueados, ambos
	Type     string // video, text
	Search   string // поиск по названию
}

// MandatoryContentRepository определяет методы для работы с обязательным контентом
type MandatoryContentRepository interface {
	Create(ctx context.Context, content *entity.MandatoryContent) error
	Update(ctx context.Context, content *entity.MandatoryContent) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error)
	// ListActiveForAudiences возвращает активный контент, адресованный одной из групп,
	// в порядке создания (created_at, id).
	ListActiveForAudiences(ctx context.Context, audiences []string) ([]entity.MandatoryContent, error)
	List(ctx context.Context, filters MandatoryContentFilters, limit, offset int) ([]entity.MandatoryContent, int64, error)
}
