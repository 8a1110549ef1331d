package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	"github.com/cresciperdi/intranet-api/internal/websocket"
	"github.com/google/uuid"
)

// NotificationMessage - содержимое уведомления, общее для всех каналов
type NotificationMessage struct {
	Title    string
	Message  string
	Type     string
	Link     string
	Metadata map[string]interface{}
}

// ChannelSettingsProvider возвращает включённые каналы уведомлений
type ChannelSettingsProvider interface {
	NotificationSettings(ctx context.Context) NotificationSettings
}

// DispatchReport - итог рассылки по каналам
type DispatchReport struct {
	InApp          int `json:"in_app"`
	Push           int `json:"push"`
	Email          int `json:"email"`
	WhatsApp       int `json:"whatsapp"`
	FailedPush     int `json:"failed_push"`
	FailedEmail    int `json:"failed_email"`
	FailedWhatsApp int `json:"failed_whatsapp"`
}

// NotificationListResponse - страница уведомлений пользователя
type NotificationListResponse struct {
	Notifications []entity.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	PerPage       int                   `json:"per_page"`
}

// NotificationService отвечает за уведомления пользователя и их рассылку по каналам
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	settings         ChannelSettingsProvider
	publisher        RealtimePublisher
	email            EmailService
	whatsApp         WhatsAppService
}

// NewNotificationService создает новый сервис уведомлений
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	settings ChannelSettingsProvider,
	publisher RealtimePublisher,
	email EmailService,
	whatsApp WhatsAppService,
) *NotificationService {
	if email == nil {
		email = &NoopEmailService{}
	}
	if whatsApp == nil {
		whatsApp = &NoopWhatsAppService{}
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		settings:         settings,
		publisher:        publisher,
		email:            email,
		whatsApp:         whatsApp,
	}
}

// Dispatch сохраняет уведомления в интранете и рассылает их по включённым каналам.
// Ошибка записи в интранет возвращается; ошибки внешних каналов только логируются.
func (s *NotificationService) Dispatch(ctx context.Context, recipients []entity.Profile, msg NotificationMessage) (*DispatchReport, error) {
	report := &DispatchReport{}
	if len(recipients) == 0 {
		return report, nil
	}

	if msg.Type == "" {
		msg.Type = entity.NotificationTypeGeneral
	}

	now := time.Now()
	notifications := make([]entity.Notification, 0, len(recipients))
	for _, r := range recipients {
		notifications = append(notifications, entity.Notification{
			ID:        uuid.New(),
			UserID:    r.ID,
			Title:     msg.Title,
			Message:   msg.Message,
			Type:      msg.Type,
			Link:      msg.Link,
			Metadata:  msg.Metadata,
			CreatedAt: now,
		})
	}
	if err := s.notificationRepo.CreateBatch(ctx, notifications); err != nil {
		return report, fmt.Errorf("failed to save notifications: %w", err)
	}
	report.InApp = len(notifications)

	channels := s.settings.NotificationSettings(ctx)

	if channels.PushEnabled && s.publisher != nil {
		for i := range notifications {
			if err := s.publisher.SendToUser(notifications[i].UserID, websocket.EventNotificationNew, notifications[i]); err != nil {
				report.FailedPush++
				log.Printf("[NotificationService] Ошибка push-уведомления пользователю %s: %v", notifications[i].UserID, err)
				continue
			}
			report.Push++
		}
	}

	if channels.EmailEnabled {
		for i, r := range recipients {
			if r.Email == "" {
				continue
			}
			if err := s.email.SendNotification(ctx, r.Email, msg, notifications[i].ID.String()); err != nil {
				report.FailedEmail++
				log.Printf("[NotificationService] Ошибка отправки письма пользователю %s: %v", r.ID, err)
				continue
			}
			report.Email++
		}
	}

	if channels.WhatsAppEnabled {
		text := msg.Title + "\n" + msg.Message
		for _, r := range recipients {
			if r.Phone == "" {
				continue
			}
			if err := s.whatsApp.SendMessage(ctx, r.Phone, text); err != nil {
				report.FailedWhatsApp++
				log.Printf("[NotificationService] Ошибка отправки WhatsApp пользователю %s: %v", r.ID, err)
				continue
			}
			report.WhatsApp++
		}
	}

	log.Printf("[NotificationService] Рассылка %q: in-app=%d push=%d email=%d whatsapp=%d (ошибки: push=%d email=%d whatsapp=%d)",
		msg.Type, report.InApp, report.Push, report.Email, report.WhatsApp,
		report.FailedPush, report.FailedEmail, report.FailedWhatsApp)
	return report, nil
}

// List возвращает уведомления пользователя постранично
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) (*NotificationListResponse, error) {
	page, pageSize, offset := normalizePagination(page, pageSize)

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userID, unreadOnly, pageSize, offset)
	if err != nil {
		log.Printf("[NotificationService] Ошибка получения уведомлений пользователя %s: %v", userID, err)
		return nil, err
	}
	if notifications == nil {
		notifications = []entity.Notification{}
	}

	return &NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		PerPage:       pageSize,
	}, nil
}

// UnreadCount возвращает количество непрочитанных уведомлений
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkRead отмечает уведомление прочитанным
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead отмечает все уведомления пользователя прочитанными
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
