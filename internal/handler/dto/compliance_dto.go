package dto

import (
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
)

// ContentEventRequest - событие плеера или области чтения
type ContentEventRequest struct {
	Type         string  `json:"type" binding:"required,oneof=video_progress video_seeked video_ended scroll"`
	Position     float64 `json:"position"`
	ScrollTop    float64 `json:"scroll_top" binding:"gte=0"`
	ClientHeight float64 `json:"client_height" binding:"gte=0"`
	ScrollHeight float64 `json:"scroll_height" binding:"gte=0"`
}

// ToEvent преобразует запрос в событие сценария
func (r *ContentEventRequest) ToEvent() compliance.Event {
	return compliance.Event{
		Type:         r.Type,
		Position:     r.Position,
		ScrollTop:    r.ScrollTop,
		ClientHeight: r.ClientHeight,
		ScrollHeight: r.ScrollHeight,
	}
}

// SelectAnswerRequest - выбор варианта ответа на вопрос квиза
type SelectAnswerRequest struct {
	Index  *int   `json:"index" binding:"required,gte=0"`
	Option string `json:"option" binding:"required"`
}

// QuizAnswer - ответ на один вопрос
type QuizAnswer struct {
	Index  int    `json:"index" binding:"gte=0"`
	Option string `json:"option" binding:"required"`
}

// SubmitQuizRequest - отправка квиза. Пустой список проверяет уже выбранные ответы.
type SubmitQuizRequest struct {
	Answers []QuizAnswer `json:"answers" binding:"dive"`
}

// AnswerMap собирает ответы в map по индексу вопроса
func (r *SubmitQuizRequest) AnswerMap() map[int]string {
	if len(r.Answers) == 0 {
		return nil
	}
	answers := make(map[int]string, len(r.Answers))
	for _, a := range r.Answers {
		answers[a.Index] = a.Option
	}
	return answers
}

// MaxIdempotencyKeyLength совпадает с размером колонки idempotency_key
const MaxIdempotencyKeyLength = 64

// ConfirmRequest - необязательное тело подтверждения.
// ClientIP браузер определяет сам, как и раньше на фронтенде.
type ConfirmRequest struct {
	ClientIP string `json:"client_ip" binding:"omitempty,ip"`
}
