package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Типы обязательного контента
const (
	ContentTypeVideo = "video"
	ContentTypeText  = "text"
)

// Целевая аудитория обязательного контента
const (
	AudienceColaboradores = "colaboradores"
	AudienceFranqueados   = "franqueados"
	AudienceAmbos         = "ambos"
)

// QuizQuestion - вопрос проверки понимания для текстового контента
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// HasOption проверяет, что вариант присутствует среди предложенных
func (q *QuizQuestion) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// IsCorrect сравнивает ответ с правильным (точное совпадение строк)
func (q *QuizQuestion) IsCorrect(answer string) bool {
	return answer == q.CorrectAnswer
}

// QuizQuestionList - упорядоченный список вопросов, хранится в JSONB.
// nil-указатель на список означает "квиза нет" и хранится как NULL,
// пустой список хранится как '[]'.
type QuizQuestionList []QuizQuestion

// Scan реализует интерфейс sql.Scanner для QuizQuestionList
func (l *QuizQuestionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal quiz questions: unsupported type")
	}

	if len(bytes) == 0 {
		*l = QuizQuestionList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value реализует интерфейс driver.Valuer для QuizQuestionList
func (l QuizQuestionList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]QuizQuestion(l))
}

// MandatoryContent - контент, который пользователь обязан изучить и подтвердить
type MandatoryContent struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title          string            `gorm:"size:200;not null" json:"title"`
	Description    string            `gorm:"type:text;not null;default:''" json:"description"`
	Type           string            `gorm:"size:10;not null" json:"type"`
	ContentURL     string            `gorm:"column:content_url;type:text;not null;default:''" json:"content_url,omitempty"`
	ContentText    string            `gorm:"column:content_text;type:text;not null;default:''" json:"content_text,omitempty"`
	QuizQuestions  *QuizQuestionList `gorm:"column:quiz_questions;type:jsonb" json:"quiz_questions"`
	TargetAudience string            `gorm:"size:20;not null;index" json:"target_audience"`
	Active         bool              `gorm:"not null;default:true;index" json:"active"`
	CreatedBy      *uuid.UUID        `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (MandatoryContent) TableName() string {
	return "mandatory_contents"
}

// IsVideo проверяет, является ли контент видео
func (c *MandatoryContent) IsVideo() bool {
	return c.Type == ContentTypeVideo
}

// IsText проверяет, является ли контент текстом
func (c *MandatoryContent) IsText() bool {
	return c.Type == ContentTypeText
}

// HasQuiz: квиз есть только у текстового контента с хотя бы одним вопросом
func (c *MandatoryContent) HasQuiz() bool {
	return c.IsText() && c.QuizQuestions != nil && len(*c.QuizQuestions) > 0
}

// Questions возвращает вопросы квиза (nil, если квиза нет)
func (c *MandatoryContent) Questions() QuizQuestionList {
	if c.QuizQuestions == nil {
		return nil
	}
	return *c.QuizQuestions
}

// MatchesAudience проверяет, адресован ли контент указанной группе
func (c *MandatoryContent) MatchesAudience(audience string) bool {
	return c.TargetAudience == AudienceAmbos || c.TargetAudience == audience
}

// IsValidContentType проверяет тип контента
func IsValidContentType(t string) bool {
	return t == ContentTypeVideo || t == ContentTypeText
}

// IsValidAudience проверяет значение целевой аудитории
func IsValidAudience(a string) bool {
	return a == AudienceColaboradores || a == AudienceFranqueados || a == AudienceAmbos
}
