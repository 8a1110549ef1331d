package compliance

import (
	"fmt"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/google/uuid"
)

// NewSession создает сессию прохождения контента в состоянии Consuming
func NewSession(content *entity.MandatoryContent, userID uuid.UUID, now time.Time) *Session {
	questionCount := 0
	if content.HasQuiz() {
		questionCount = len(content.Questions())
	}
	return &Session{
		ContentID:     content.ID,
		UserID:        userID,
		ContentType:   content.Type,
		Fingerprint:   ContentFingerprint(content),
		State:         StateConsuming,
		QuestionCount: questionCount,
		Answers:       make(map[int]string),
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// MatchesContent сверяет сессию с текущей версией контента.
// Сессия, начатая до правки материала или вопросов, недействительна.
func (s *Session) MatchesContent(content *entity.MandatoryContent) bool {
	return s.ContentID == content.ID && s.Fingerprint == ContentFingerprint(content)
}

// HasQuiz проверяет, есть ли у контента сессии вопросы
func (s *Session) HasQuiz() bool {
	return s.ContentType == entity.ContentTypeText && s.QuestionCount > 0
}

// IsFinal проверяет, что подтверждение уже отправлено или сохранено
func (s *Session) IsFinal() bool {
	return s.State == StateConfirming || s.State == StateConfirmed
}

// CanConfirm проверяет доступность кнопки подтверждения
func (s *Session) CanConfirm() bool {
	return s.State == StateConfirmable
}

// ApplyEvent обрабатывает событие плеера или прокрутки.
// Возвращает true, если состояние сессии изменилось.
func (s *Session) ApplyEvent(ev Event, tolerancePx int, now time.Time) (bool, error) {
	if s.IsFinal() {
		return false, nil
	}

	switch s.ContentType {
	case entity.ContentTypeVideo:
		return s.applyVideoEvent(ev, now)
	case entity.ContentTypeText:
		return s.applyTextEvent(ev, tolerancePx, now)
	default:
		return false, fmt.Errorf("%w: unknown content type %q", apperrors.ErrValidation, s.ContentType)
	}
}

// Видео разблокируется только событием окончания воспроизведения.
// Позиция плеера и перемотка в конец не учитываются.
func (s *Session) applyVideoEvent(ev Event, now time.Time) (bool, error) {
	switch ev.Type {
	case EventVideoEnded:
		if s.VideoEnded && s.State == StateConfirmable {
			return false, nil
		}
		s.VideoEnded = true
		s.State = StateConfirmable
		s.UpdatedAt = now
		return true, nil
	case EventVideoProgress, EventVideoSeeked:
		return false, nil
	default:
		return false, fmt.Errorf("%w: event %q is not supported for video content", apperrors.ErrValidation, ev.Type)
	}
}

func (s *Session) applyTextEvent(ev Event, tolerancePx int, now time.Time) (bool, error) {
	if ev.Type != EventScroll {
		return false, fmt.Errorf("%w: event %q is not supported for text content", apperrors.ErrValidation, ev.Type)
	}
	if ev.ScrollTop < 0 || ev.ClientHeight < 0 || ev.ScrollHeight < 0 {
		return false, fmt.Errorf("%w: scroll metrics must not be negative", apperrors.ErrValidation)
	}
	if s.ReachedEnd || !ReachedBottom(ev, tolerancePx) {
		return false, nil
	}

	s.ReachedEnd = true
	if s.HasQuiz() {
		s.State = StateQuizPending
		if len(s.Answers) == s.QuestionCount {
			s.State = StateQuizAnswered
		}
	} else {
		s.State = StateConfirmable
	}
	s.UpdatedAt = now
	return true, nil
}

// ReachedBottom проверяет, что область чтения прокручена до конца с допуском tolerancePx
func ReachedBottom(ev Event, tolerancePx int) bool {
	return ev.ScrollTop+ev.ClientHeight >= ev.ScrollHeight-float64(tolerancePx)
}

// SelectAnswer запоминает выбранный вариант ответа.
// Изменение ответа после проверки возвращает квиз в QuizAnswered, последний снимок проверки остаётся видимым.
func (s *Session) SelectAnswer(questions entity.QuizQuestionList, index int, option string, now time.Time) error {
	if err := s.checkQuizAvailable(); err != nil {
		return err
	}
	if err := validateAnswer(questions, index, option); err != nil {
		return err
	}

	if prev, ok := s.Answers[index]; ok && prev == option {
		return nil
	}
	if s.Answers == nil {
		s.Answers = make(map[int]string)
	}
	s.Answers[index] = option
	s.UpdatedAt = now

	if len(s.Answers) == s.QuestionCount {
		s.State = StateQuizAnswered
	} else {
		s.State = StateQuizPending
	}
	return nil
}

// SubmitQuiz объединяет переданные ответы с уже выбранными и проверяет квиз.
// При неполных ответах сессия не меняется.
func (s *Session) SubmitQuiz(questions entity.QuizQuestionList, answers map[int]string, now time.Time) (*QuizAttempt, error) {
	if err := s.checkQuizAvailable(); err != nil {
		return nil, err
	}

	merged := make(map[int]string, s.QuestionCount)
	for idx, option := range s.Answers {
		merged[idx] = option
	}
	for idx, option := range answers {
		if err := validateAnswer(questions, idx, option); err != nil {
			return nil, err
		}
		merged[idx] = option
	}

	for i := 0; i < len(questions); i++ {
		if _, ok := merged[i]; !ok {
			return nil, fmt.Errorf("%w: question %d has no answer", apperrors.ErrQuizIncomplete, i)
		}
	}

	attempt := Grade(questions, merged, now)

	s.Answers = merged
	s.LastAttempt = attempt
	s.Attempts++
	s.UpdatedAt = now
	if attempt.AllCorrect {
		s.State = StateConfirmable
	} else {
		s.State = StateQuizGraded
	}
	return attempt, nil
}

// BeginConfirm переводит сессию в Confirming
func (s *Session) BeginConfirm(now time.Time) error {
	switch s.State {
	case StateConfirmable:
		s.State = StateConfirming
		s.UpdatedAt = now
		return nil
	case StateConfirming:
		return apperrors.ErrConfirmationInProgress
	case StateConfirmed:
		return apperrors.ErrAlreadyConfirmed
	default:
		return fmt.Errorf("%w: state is %s", apperrors.ErrNotConfirmable, s.State)
	}
}

// FailConfirm возвращает сессию в Confirmable после ошибки записи подписи
func (s *Session) FailConfirm(now time.Time) {
	if s.State == StateConfirming {
		s.State = StateConfirmable
		s.UpdatedAt = now
	}
}

// CompleteConfirm фиксирует успешную подпись
func (s *Session) CompleteConfirm(now time.Time) {
	s.State = StateConfirmed
	s.UpdatedAt = now
}

// Score возвращает балл для подписи: 100 для видео и текста без квиза, иначе результат последней проверки
func (s *Session) Score() int {
	if !s.HasQuiz() {
		return 100
	}
	if s.LastAttempt == nil {
		return 0
	}
	return s.LastAttempt.Score
}

func (s *Session) checkQuizAvailable() error {
	if !s.HasQuiz() {
		return fmt.Errorf("%w: content has no quiz", apperrors.ErrValidation)
	}
	if s.IsFinal() {
		return fmt.Errorf("%w: confirmation already submitted", apperrors.ErrConflict)
	}
	if !s.ReachedEnd {
		return fmt.Errorf("%w: read the content to the end first", apperrors.ErrConflict)
	}
	return nil
}

func validateAnswer(questions entity.QuizQuestionList, index int, option string) error {
	if index < 0 || index >= len(questions) {
		return fmt.Errorf("%w: question index %d out of range", apperrors.ErrValidation, index)
	}
	if !questions[index].HasOption(option) {
		return fmt.Errorf("%w: option is not one of question %d options", apperrors.ErrValidation, index)
	}
	return nil
}
