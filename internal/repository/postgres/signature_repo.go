package postgres

import (
	"context"
	"fmt"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignatureRepo реализует repository.SignatureRepository.
// Методов обновления и удаления нет: подписи - журнал аудита.
type SignatureRepo struct {
	db *gorm.DB
}

// NewSignatureRepo создает новый репозиторий подписей
func NewSignatureRepo(db *gorm.DB) *SignatureRepo {
	return &SignatureRepo{db: db}
}

// Create добавляет подпись.
// Partial unique index idx_signatures_success (content_id, user_id) WHERE success
// превращает повторную отправку в ErrConflict.
func (r *SignatureRepo) Create(ctx context.Context, signature *entity.MandatoryContentSignature) error {
	if err := r.db.WithContext(ctx).Omit("Content", "Profile").Create(signature).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: signature for content %s by user %s already exists",
				apperrors.ErrConflict, signature.ContentID, signature.UserID)
		}
		return fmt.Errorf("failed to create signature: %w", err)
	}
	return nil
}

// HasSuccessful проверяет наличие успешной подписи
func (r *SignatureRepo) HasSuccessful(ctx context.Context, contentID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.MandatoryContentSignature{}).
		Where("content_id = ? AND user_id = ? AND success = ?", contentID, userID, true).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check signature: %w", err)
	}
	return count > 0, nil
}

// ListByContent возвращает подписи контента с профилями (новые сверху)
func (r *SignatureRepo) ListByContent(ctx context.Context, contentID uuid.UUID, limit, offset int) ([]entity.MandatoryContentSignature, int64, error) {
	var signatures []entity.MandatoryContentSignature
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MandatoryContentSignature{}).
		Where("content_id = ? AND success = ?", contentID, true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Profile").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&signatures).Error
	if err != nil {
		return nil, 0, err
	}
	return signatures, total, nil
}

// ListAllByContent возвращает все подписи контента для экспорта
func (r *SignatureRepo) ListAllByContent(ctx context.Context, contentID uuid.UUID) ([]entity.MandatoryContentSignature, error) {
	var signatures []entity.MandatoryContentSignature
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("content_id = ? AND success = ?", contentID, true).
		Order("created_at ASC").
		Find(&signatures).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	return signatures, nil
}

// ListSignedUserIDs возвращает ID пользователей, уже подтвердивших контент
func (r *SignatureRepo) ListSignedUserIDs(ctx context.Context, contentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&entity.MandatoryContentSignature{}).
		Where("content_id = ? AND success = ?", contentID, true).
		Distinct().
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list signed users: %w", err)
	}
	return ids, nil
}

// CountByContent возвращает количество успешных подписей контента
func (r *SignatureRepo) CountByContent(ctx context.Context, contentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.MandatoryContentSignature{}).
		Where("content_id = ? AND success = ?", contentID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count signatures: %w", err)
	}
	return count, nil
}
