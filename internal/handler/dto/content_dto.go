package dto

import (
	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/service"
)

// MandatoryContentRequest - тело создания и изменения обязательного контента
type MandatoryContentRequest struct {
	Title          string                   `json:"title" binding:"required,min=3,max=200"`
	Description    string                   `json:"description" binding:"max=2000"`
	Type           string                   `json:"type" binding:"required,content_type"`
	ContentURL     string                   `json:"content_url" binding:"omitempty,url"`
	ContentText    string                   `json:"content_text"`
	QuizQuestions  *entity.QuizQuestionList `json:"quiz_questions"`
	TargetAudience string                   `json:"target_audience" binding:"required,audience"`
	Active         *bool                    `json:"active"`
	Notify         bool                     `json:"notify"`
}

// ToInput преобразует запрос во входные данные сервиса
func (r *MandatoryContentRequest) ToInput() service.ContentInput {
	return service.ContentInput{
		Title:          r.Title,
		Description:    r.Description,
		Type:           r.Type,
		ContentURL:     r.ContentURL,
		ContentText:    r.ContentText,
		QuizQuestions:  r.QuizQuestions,
		TargetAudience: r.TargetAudience,
		Active:         r.Active,
		Notify:         r.Notify,
	}
}

// SetActiveRequest - включение или выключение контента
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
	Notify bool  `json:"notify"`
}

// ContentListQuery - фильтры списка контента в админке
type ContentListQuery struct {
	Active   *bool  `form:"active"`
	Audience string `form:"audience" binding:"omitempty,audience"`
	Type     string `form:"type" binding:"omitempty,content_type"`
	Search   string `form:"search" binding:"max=100"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// UpdateSettingRequest - новое значение настройки
type UpdateSettingRequest struct {
	Value string `json:"value"`
}
