package repository

import (
	"context"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/google/uuid"
)

// SignatureRepository определяет методы для работы с подписями (только добавление и чтение)
type SignatureRepository interface {
	// Create добавляет подпись. Повторная успешная подпись той же пары возвращает ErrConflict.
	Create(ctx context.Context, signature *entity.MandatoryContentSignature) error
	// HasSuccessful проверяет наличие подписи с success=true для пары (контент, пользователь)
	HasSuccessful(ctx context.Context, contentID, userID uuid.UUID) (bool, error)
	ListByContent(ctx context.Context, contentID uuid.UUID, limit, offset int) ([]entity.MandatoryContentSignature, int64, error)
	ListAllByContent(ctx context.Context, contentID uuid.UUID) ([]entity.MandatoryContentSignature, error)
	ListSignedUserIDs(ctx context.Context, contentID uuid.UUID) ([]uuid.UUID, error)
	CountByContent(ctx context.Context, contentID uuid.UUID) (int64, error)
}
