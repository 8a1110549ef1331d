package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Типы уведомлений
const (
	NotificationTypeMandatoryContent = "mandatory_content"
	NotificationTypeReminder         = "mandatory_content_reminder"
	NotificationTypeGeneral          = "general"
)

// Notification - уведомление пользователя в интранете
type Notification struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string            `gorm:"size:200;not null" json:"title"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Type      string            `gorm:"size:40;not null;default:'general'" json:"type"`
	Link      string            `gorm:"size:255;not null;default:''" json:"link,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	Read      bool              `gorm:"not null;default:false;index" json:"read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Notification) TableName() string {
	return "notifications"
}
