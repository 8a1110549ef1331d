package entity

import (
	"time"

	"github.com/google/uuid"
)

// Ключи настроек админ-панели
const (
	SettingPushEnabled      = "notifications.push_enabled"
	SettingEmailEnabled     = "notifications.email_enabled"
	SettingWhatsAppEnabled  = "notifications.whatsapp_enabled"
	SettingRemindersEnabled = "compliance.reminders_enabled"
	SettingReminderMessage  = "compliance.reminder_message"
)

// AppSetting - строка key/value настроек
type AppSetting struct {
	Key       string     `gorm:"primaryKey;size:100" json:"key"`
	Value     string     `gorm:"type:text;not null;default:''" json:"value"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (AppSetting) TableName() string {
	return "app_settings"
}
