package repository

import (
	"context"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/google/uuid"
)

// NotificationRepository определяет методы для работы с уведомлениями
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []entity.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]entity.Notification, int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}
