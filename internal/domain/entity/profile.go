package entity

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей интранета
const (
	RoleAdmin       = "admin"
	RoleGestor      = "gestor"
	RoleFranqueado  = "franqueado"
	RoleColaborador = "colaborador"
)

// Profile представляет профиль пользователя. ID совпадает с subject токена провайдера идентификации.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"size:150;not null;default:''" json:"full_name"`
	Email     string    `gorm:"size:150;not null;index" json:"email"`
	Phone     string    `gorm:"size:30;not null;default:''" json:"phone,omitempty"`
	Role      string    `gorm:"size:20;not null;default:'colaborador'" json:"role"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Profile) TableName() string {
	return "profiles"
}

// IsAdmin проверяет, является ли пользователь администратором
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Audience возвращает группу аудитории, к которой относится пользователь
func (p *Profile) Audience() string {
	return AudienceFor(p.Role)
}

// AudienceFor: франчайзи получают контент для "franqueados", все остальные роли - для "colaboradores"
func AudienceFor(role string) string {
	if role == RoleFranqueado {
		return AudienceFranqueados
	}
	return AudienceColaboradores
}
