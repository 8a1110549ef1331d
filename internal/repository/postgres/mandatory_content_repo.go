package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MandatoryContentRepo реализует repository.MandatoryContentRepository
type MandatoryContentRepo struct {
	db *gorm.DB
}

// NewMandatoryContentRepo создает новый репозиторий обязательного контента
func NewMandatoryContentRepo(db *gorm.DB) *MandatoryContentRepo {
	return &MandatoryContentRepo{db: db}
}

// Create сохраняет новый контент
func (r *MandatoryContentRepo) Create(ctx context.Context, content *entity.MandatoryContent) error {
	if err := r.db.WithContext(ctx).Create(content).Error; err != nil {
		return fmt.Errorf("failed to create mandatory content: %w", err)
	}
	return nil
}

// Update точечно обновляет редактируемые поля (active меняется отдельно через SetActive)
func (r *MandatoryContentRepo) Update(ctx context.Context, content *entity.MandatoryContent) error {
	updates := map[string]interface{}{
		"title":           content.Title,
		"description":     content.Description,
		"type":            content.Type,
		"content_url":     content.ContentURL,
		"content_text":    content.ContentText,
		"quiz_questions":  content.QuizQuestions,
		"target_audience": content.TargetAudience,
	}

	result := r.db.WithContext(ctx).Model(&entity.MandatoryContent{}).
		Where("id = ?", content.ID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update mandatory content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetActive включает или выключает контент
func (r *MandatoryContentRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).Model(&entity.MandatoryContent{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to set mandatory content active=%t: %w", active, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetByID возвращает контент по ID
func (r *MandatoryContentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error) {
	var content entity.MandatoryContent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mandatory content: %w", err)
	}
	return &content, nil
}

// ListActiveForAudiences возвращает активный контент для групп в стабильном порядке создания
func (r *MandatoryContentRepo) ListActiveForAudiences(ctx context.Context, audiences []string) ([]entity.MandatoryContent, error) {
	var contents []entity.MandatoryContent
	err := r.db.WithContext(ctx).
		Where("active = ? AND target_audience IN ?", true, audiences).
		Order("created_at ASC, id ASC").
		Find(&contents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active mandatory content: %w", err)
	}
	return contents, nil
}

// List возвращает контент с фильтрами и пагинацией для админки
func (r *MandatoryContentRepo) List(ctx context.Context, filters repository.MandatoryContentFilters, limit, offset int) ([]entity.MandatoryContent, int64, error) {
	var contents []entity.MandatoryContent
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MandatoryContent{})

	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	if filters.Audience != "" {
		query = query.Where("target_audience = ?", filters.Audience)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filters.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Limit(limit).Offset(offset).Order("created_at DESC").Find(&contents).Error
	if err != nil {
		return nil, 0, err
	}

	return contents, total, nil
}
