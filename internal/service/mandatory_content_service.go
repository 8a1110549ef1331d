package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/google/uuid"
)

// ContentInput - данные для создания или изменения обязательного контента
type ContentInput struct {
	Title          string
	Description    string
	Type           string
	ContentURL     string
	ContentText    string
	QuizQuestions  *entity.QuizQuestionList
	TargetAudience string
	Active         *bool
	Notify         bool
}

// ContentListResponse - страница контента для админки
type ContentListResponse struct {
	Contents []entity.MandatoryContent `json:"contents"`
	Total    int64                     `json:"total"`
	Page     int                       `json:"page"`
	PerPage  int                       `json:"per_page"`
}

// Notifier рассылает уведомления пользователям
type Notifier interface {
	Dispatch(ctx context.Context, recipients []entity.Profile, msg NotificationMessage) (*DispatchReport, error)
}

// StatusInvalidator сбрасывает закешированный статус соответствия
type StatusInvalidator interface {
	InvalidateStatus(userID uuid.UUID)
}

// MandatoryContentService - управление обязательным контентом из админки
type MandatoryContentService struct {
	contentRepo repository.MandatoryContentRepository
	profileRepo repository.ProfileRepository
	notifier    Notifier
	statuses    StatusInvalidator
	runAsync    func(func())
}

// NewMandatoryContentService создает новый сервис обязательного контента
func NewMandatoryContentService(
	contentRepo repository.MandatoryContentRepository,
	profileRepo repository.ProfileRepository,
	notifier Notifier,
	statuses StatusInvalidator,
) *MandatoryContentService {
	return &MandatoryContentService{
		contentRepo: contentRepo,
		profileRepo: profileRepo,
		notifier:    notifier,
		statuses:    statuses,
		runAsync:    func(f func()) { go f() },
	}
}

// ValidateContentInput проверяет поля контента в зависимости от типа
func ValidateContentInput(input *ContentInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.ContentURL = strings.TrimSpace(input.ContentURL)

	titleLen := len([]rune(input.Title))
	if titleLen < 3 || titleLen > 200 {
		return fmt.Errorf("%w: title must be between 3 and 200 characters", apperrors.ErrValidation)
	}
	if !entity.IsValidContentType(input.Type) {
		return fmt.Errorf("%w: type must be video or text", apperrors.ErrValidation)
	}
	if !entity.IsValidAudience(input.TargetAudience) {
		return fmt.Errorf("%w: target_audience must be colaboradores, franqueados or ambos", apperrors.ErrValidation)
	}

	switch input.Type {
	case entity.ContentTypeVideo:
		if input.ContentURL == "" {
			return fmt.Errorf("%w: content_url is required for video", apperrors.ErrValidation)
		}
		u, err := url.Parse(input.ContentURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: content_url must be an http(s) url", apperrors.ErrValidation)
		}
		if input.QuizQuestions != nil {
			return fmt.Errorf("%w: video content cannot have quiz questions", apperrors.ErrValidation)
		}
		input.ContentText = ""
	case entity.ContentTypeText:
		if strings.TrimSpace(input.ContentText) == "" {
			return fmt.Errorf("%w: content_text is required for text", apperrors.ErrValidation)
		}
		input.ContentURL = ""
		if input.QuizQuestions != nil {
			if err := validateQuestions(*input.QuizQuestions); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateQuestions(questions entity.QuizQuestionList) error {
	for i := range questions {
		q := &questions[i]
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			return fmt.Errorf("%w: question %d has no text", apperrors.ErrValidation, i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least 2 options", apperrors.ErrValidation, i)
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, option := range q.Options {
			if option == "" {
				return fmt.Errorf("%w: question %d has an empty option", apperrors.ErrValidation, i)
			}
			if _, dup := seen[option]; dup {
				return fmt.Errorf("%w: question %d has duplicate option %q", apperrors.ErrValidation, i, option)
			}
			seen[option] = struct{}{}
		}
		if !q.HasOption(q.CorrectAnswer) {
			return fmt.Errorf("%w: question %d correct_answer must be one of the options", apperrors.ErrValidation, i)
		}
	}
	return nil
}

// Create создает обязательный контент
func (s *MandatoryContentService) Create(ctx context.Context, adminID uuid.UUID, input ContentInput) (*entity.MandatoryContent, error) {
	if err := ValidateContentInput(&input); err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	content := &entity.MandatoryContent{
		ID:             uuid.New(),
		Title:          input.Title,
		Description:    strings.TrimSpace(input.Description),
		Type:           input.Type,
		ContentURL:     input.ContentURL,
		ContentText:    input.ContentText,
		QuizQuestions:  input.QuizQuestions,
		TargetAudience: input.TargetAudience,
		Active:         active,
		CreatedBy:      &adminID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.contentRepo.Create(ctx, content); err != nil {
		return nil, err
	}
	log.Printf("[MandatoryContentService] Администратор %s создал контент %s (%s, %s, active=%t)",
		adminID, content.ID, content.Type, content.TargetAudience, content.Active)

	if content.Active {
		s.afterActivation(content, input.Notify)
	}
	return content, nil
}

// Update изменяет контент. Активность меняется через SetActive.
func (s *MandatoryContentService) Update(ctx context.Context, id uuid.UUID, input ContentInput) (*entity.MandatoryContent, error) {
	if err := ValidateContentInput(&input); err != nil {
		return nil, err
	}

	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousAudience := content.TargetAudience

	content.Title = input.Title
	content.Description = strings.TrimSpace(input.Description)
	content.Type = input.Type
	content.ContentURL = input.ContentURL
	content.ContentText = input.ContentText
	content.QuizQuestions = input.QuizQuestions
	content.TargetAudience = input.TargetAudience

	if err := s.contentRepo.Update(ctx, content); err != nil {
		return nil, err
	}

	if content.Active {
		s.invalidateAudience(ctx, content.TargetAudience)
		if previousAudience != content.TargetAudience {
			s.invalidateAudience(ctx, previousAudience)
		}
	}
	return content, nil
}

// SetActive включает или выключает контент. При включении с notify=true аудитория получает уведомление.
func (s *MandatoryContentService) SetActive(ctx context.Context, id uuid.UUID, active, notify bool) (*entity.MandatoryContent, error) {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if content.Active == active {
		return content, nil
	}

	if err := s.contentRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	content.Active = active
	log.Printf("[MandatoryContentService] Контент %s: active=%t", id, active)

	if active {
		s.afterActivation(content, notify)
	} else {
		s.invalidateAudience(ctx, content.TargetAudience)
	}
	return content, nil
}

// GetByID возвращает контент с правильными ответами (для админки)
func (s *MandatoryContentService) GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error) {
	return s.contentRepo.GetByID(ctx, id)
}

// List возвращает контент с фильтрами
func (s *MandatoryContentService) List(ctx context.Context, filters repository.MandatoryContentFilters, page, pageSize int) (*ContentListResponse, error) {
	page, pageSize, offset := normalizePagination(page, pageSize)

	contents, total, err := s.contentRepo.List(ctx, filters, pageSize, offset)
	if err != nil {
		log.Printf("[MandatoryContentService] Ошибка получения списка контента: %v", err)
		return nil, err
	}
	if contents == nil {
		contents = []entity.MandatoryContent{}
	}
	return &ContentListResponse{Contents: contents, Total: total, Page: page, PerPage: pageSize}, nil
}

// afterActivation сбрасывает статусы аудитории и, если нужно, рассылает уведомление в фоне
func (s *MandatoryContentService) afterActivation(content *entity.MandatoryContent, notify bool) {
	snapshot := *content
	s.runAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		profiles, err := s.profileRepo.ListActiveByAudience(ctx, snapshot.TargetAudience)
		if err != nil {
			log.Printf("[MandatoryContentService] Ошибка получения аудитории контента %s: %v", snapshot.ID, err)
			return
		}
		for i := range profiles {
			s.statuses.InvalidateStatus(profiles[i].ID)
		}

		if !notify || s.notifier == nil {
			return
		}
		msg := NotificationMessage{
			Title:   "Novo conteúdo obrigatório",
			Message: fmt.Sprintf("O conteúdo \"%s\" precisa da sua ciência.", snapshot.Title),
			Type:    entity.NotificationTypeMandatoryContent,
			Link:    compliance.PendingPath(snapshot.ID),
			Metadata: map[string]interface{}{
				"content_id":   snapshot.ID.String(),
				"content_type": snapshot.Type,
			},
		}
		if _, err := s.notifier.Dispatch(ctx, profiles, msg); err != nil {
			log.Printf("[MandatoryContentService] Ошибка рассылки уведомлений о контенте %s: %v", snapshot.ID, err)
		}
	})
}

func (s *MandatoryContentService) invalidateAudience(ctx context.Context, audience string) {
	profiles, err := s.profileRepo.ListActiveByAudience(ctx, audience)
	if err != nil {
		log.Printf("[MandatoryContentService] Ошибка получения аудитории %s: %v", audience, err)
		return
	}
	for i := range profiles {
		s.statuses.InvalidateStatus(profiles[i].ID)
	}
}
