package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/cresciperdi/intranet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextNotificationID - ключ UUID уведомления в контексте Gin
const ContextNotificationID = "notificationID"

// NotificationReader - уведомления текущего пользователя
type NotificationReader interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) (*service.NotificationListResponse, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotificationHandler обрабатывает запросы уведомлений
type NotificationHandler struct {
	notifications NotificationReader
}

// NewNotificationHandler создает новый обработчик уведомлений
func NewNotificationHandler(notifications NotificationReader) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List возвращает уведомления пользователя
// GET /api/notifications?unread=true&page=&page_size=
func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	page, pageSize := pageParams(c)

	list, err := h.notifications.List(c.Request.Context(), userID, unreadOnly, page, pageSize)
	if err != nil {
		handleError(c, "NotificationHandler", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UnreadCount возвращает число непрочитанных уведомлений
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "NotificationHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead отмечает уведомление прочитанным
// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	notificationID := c.MustGet(ContextNotificationID).(uuid.UUID)

	if err := h.notifications.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		handleError(c, "NotificationHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead отмечает все уведомления прочитанными
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "NotificationHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
