package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepo реализует repository.ProfileRepository
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo создает новый репозиторий профилей
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetByID возвращает профиль по ID
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// ListActiveByAudience возвращает активные профили группы
func (r *ProfileRepo) ListActiveByAudience(ctx context.Context, audience string) ([]entity.Profile, error) {
	var profiles []entity.Profile
	query := r.db.WithContext(ctx).Where("active = ?", true)

	switch audience {
	case entity.AudienceFranqueados:
		query = query.Where("role = ?", entity.RoleFranqueado)
	case entity.AudienceColaboradores:
		query = query.Where("role <> ?", entity.RoleFranqueado)
	case entity.AudienceAmbos:
		// без фильтра по роли
	default:
		return nil, fmt.Errorf("%w: unknown audience %q", apperrors.ErrValidation, audience)
	}

	if err := query.Order("created_at, id").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// GetByIDs возвращает профили по списку ID (отсутствующие пропускаются)
func (r *ProfileRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Profile, error) {
	if len(ids) == 0 {
		return []entity.Profile{}, nil
	}
	var profiles []entity.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	return profiles, nil
}
