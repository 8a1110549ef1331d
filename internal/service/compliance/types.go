package compliance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State - состояние прохождения обязательного контента
type State string

const (
	// StateNoPending - у пользователя нет непройденного контента
	StateNoPending State = "no_pending"
	// StateConsuming - пользователь смотрит видео или читает текст
	StateConsuming State = "consuming"
	// StateQuizPending - текст дочитан, не на все вопросы выбран ответ
	StateQuizPending State = "quiz_pending"
	// StateQuizAnswered - ответы выбраны на все вопросы, квиз можно отправить
	StateQuizAnswered State = "quiz_answered"
	// StateQuizGraded - квиз проверен, есть неверные ответы
	StateQuizGraded State = "quiz_graded"
	// StateConfirmable - можно подтвердить ознакомление
	StateConfirmable State = "confirmable"
	// StateConfirming - подтверждение отправлено и обрабатывается
	StateConfirming State = "confirming"
	// StateConfirmed - подпись сохранена
	StateConfirmed State = "confirmed"
)

// Типы событий клиента
const (
	EventVideoEnded    = "video_ended"
	EventVideoProgress = "video_progress"
	EventVideoSeeked   = "video_seeked"
	EventScroll        = "scroll"
)

// DefaultScrollTolerancePx - допуск в пикселях при определении конца текста
const DefaultScrollTolerancePx = 10

// PendingContentPath - маршрут страницы подтверждения в веб-клиенте
const PendingContentPath = "/conteudo-obrigatorio/"

// HomePath - маршрут главной страницы, куда пользователь возвращается после подтверждения
const HomePath = "/"

// Event - событие плеера или области чтения
type Event struct {
	Type         string  `json:"type"`
	Position     float64 `json:"position,omitempty"`
	ScrollTop    float64 `json:"scroll_top,omitempty"`
	ClientHeight float64 `json:"client_height,omitempty"`
	ScrollHeight float64 `json:"scroll_height,omitempty"`
}

// QuestionResult - результат проверки одного вопроса
type QuestionResult struct {
	Index       int    `json:"index"`
	Selected    string `json:"selected"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// QuizAttempt - снимок результата проверки квиза. Каждая отправка заменяет предыдущий снимок.
type QuizAttempt struct {
	Results    []QuestionResult `json:"results"`
	Correct    int              `json:"correct"`
	Total      int              `json:"total"`
	Score      int              `json:"score"`
	AllCorrect bool             `json:"all_correct"`
	GradedAt   time.Time        `json:"graded_at"`
}

// Session - серверное состояние прохождения одного контента одним пользователем
type Session struct {
	ContentID     uuid.UUID      `json:"content_id"`
	UserID        uuid.UUID      `json:"user_id"`
	ContentType   string         `json:"content_type"`
	Fingerprint   string         `json:"fingerprint"`
	State         State          `json:"state"`
	VideoEnded    bool           `json:"video_ended"`
	ReachedEnd    bool           `json:"reached_end"`
	QuestionCount int            `json:"question_count"`
	Answers       map[int]string `json:"answers"`
	LastAttempt   *QuizAttempt   `json:"last_attempt,omitempty"`
	Attempts      int            `json:"attempts"`
	StartedAt     time.Time      `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Status - явный статус соответствия пользователя, вычисляется при входе и после подтверждения
type Status struct {
	Pending    bool       `json:"pending"`
	State      State      `json:"state"`
	ContentID  *uuid.UUID `json:"content_id,omitempty"`
	Title      string     `json:"title,omitempty"`
	Type       string     `json:"type,omitempty"`
	RedirectTo string     `json:"redirect_to,omitempty"`
	// Degraded: статус получен в режиме fail-open после ошибки чтения
	Degraded  bool      `json:"degraded,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Config содержит настройки сценария подтверждения
type Config struct {
	StatusTTL         time.Duration
	SessionTTL        time.Duration
	ConfirmLockTTL    time.Duration
	ScrollTolerancePx int
	RedirectDelayMs   int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		StatusTTL:         10 * time.Minute,
		SessionTTL:        24 * time.Hour,
		ConfirmLockTTL:    30 * time.Second,
		ScrollTolerancePx: DefaultScrollTolerancePx,
		RedirectDelayMs:   2000,
	}
}

// PendingPath возвращает маршрут страницы подтверждения контента
func PendingPath(contentID uuid.UUID) string {
	return PendingContentPath + contentID.String()
}

// StatusKey - ключ кеша статуса соответствия
func StatusKey(userID uuid.UUID) string {
	return fmt.Sprintf("compliance:status:%s", userID)
}

// SessionKey - ключ сессии прохождения контента
func SessionKey(userID, contentID uuid.UUID) string {
	return fmt.Sprintf("compliance:session:%s:%s", userID, contentID)
}

// ConfirmLockKey - ключ блокировки подтверждения
func ConfirmLockKey(userID, contentID uuid.UUID) string {
	return fmt.Sprintf("compliance:confirm:%s:%s", userID, contentID)
}
