package entity

import (
	"time"

	"github.com/google/uuid"
)

// IPAddressUnknown - значение ip_address, когда адрес определить не удалось
const IPAddressUnknown = "unknown"

// Тексты подтверждения ("ciência") по типу контента
const (
	ConfirmationTextVideo = "Declaro que assisti integralmente ao conteúdo obrigatório e estou ciente das orientações apresentadas."
	ConfirmationTextText  = "Declaro que li, entendi e estou ciente do conteúdo obrigatório apresentado."
)

// ConfirmationTextFor возвращает фиксированный текст подтверждения для типа контента
func ConfirmationTextFor(contentType string) string {
	if contentType == ContentTypeVideo {
		return ConfirmationTextVideo
	}
	return ConfirmationTextText
}

// MandatoryContentSignature - запись об успешном подтверждении контента.
// Записи только добавляются: пути обновления и удаления нет.
type MandatoryContentSignature struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContentID        uuid.UUID `gorm:"type:uuid;not null;index" json:"content_id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Score            int       `gorm:"not null" json:"score"`
	Confirmed        bool      `gorm:"not null;default:true" json:"confirmed"`
	ConfirmationText string    `gorm:"type:text;not null" json:"confirmation_text"`
	IPAddress        string    `gorm:"column:ip_address;size:64;not null;default:'unknown'" json:"ip_address"`
	UserAgent        string    `gorm:"type:text;not null;default:''" json:"user_agent,omitempty"`
	Success          bool      `gorm:"not null;default:true" json:"success"`
	EvidenceHash     string    `gorm:"size:64;not null;default:''" json:"evidence_hash"`
	IdempotencyKey   string    `gorm:"size:64;not null;default:''" json:"idempotency_key,omitempty"`
	CreatedAt        time.Time `json:"created_at"`

	Content *MandatoryContent `gorm:"foreignKey:ContentID" json:"-"`
	Profile *Profile          `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (MandatoryContentSignature) TableName() string {
	return "mandatory_content_signatures"
}
