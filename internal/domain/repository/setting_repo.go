package repository

import (
	"context"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
)

// SettingRepository определяет методы для работы с настройками key/value
type SettingRepository interface {
	List(ctx context.Context) ([]entity.AppSetting, error)
	Get(ctx context.Context, key string) (*entity.AppSetting, error)
	Upsert(ctx context.Context, setting *entity.AppSetting) error
}
