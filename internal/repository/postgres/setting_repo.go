package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepo реализует repository.SettingRepository
type SettingRepo struct {
	db *gorm.DB
}

// NewSettingRepo создает новый репозиторий настроек
func NewSettingRepo(db *gorm.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

// List возвращает все настройки
func (r *SettingRepo) List(ctx context.Context) ([]entity.AppSetting, error) {
	var settings []entity.AppSetting
	if err := r.db.WithContext(ctx).Order("key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// Get возвращает настройку по ключу
func (r *SettingRepo) Get(ctx context.Context, key string) (*entity.AppSetting, error) {
	var setting entity.AppSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// Upsert создаёт или обновляет настройку по ключу
func (r *SettingRepo) Upsert(ctx context.Context, setting *entity.AppSetting) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}
