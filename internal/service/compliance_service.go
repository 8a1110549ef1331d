package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/cresciperdi/intranet-api/internal/websocket"
	"github.com/google/uuid"
)

// IPResolver определяет IP-адрес для подписи (best-effort)
type IPResolver interface {
	Resolve(requestIP, reportedIP string) string
}

// RealtimePublisher доставляет события пользователю по WebSocket
type RealtimePublisher interface {
	SendToUser(userID uuid.UUID, eventType string, data interface{}) error
}

// ConfirmMeta - метаданные запроса подтверждения
type ConfirmMeta struct {
	ClientIP       string
	ReportedIP     string // адрес, который браузер определил сам
	UserAgent      string
	IdempotencyKey string
}

// PublicQuestion - вопрос без правильного ответа и пояснения
type PublicQuestion struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// ContentView - контент для страницы подтверждения
type ContentView struct {
	ID               uuid.UUID        `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Type             string           `json:"type"`
	ContentURL       string           `json:"content_url,omitempty"`
	ContentText      string           `json:"content_text,omitempty"`
	Questions        []PublicQuestion `json:"questions,omitempty"`
	ConfirmationText string           `json:"confirmation_text"`
}

// SessionView - снимок сессии прохождения для клиента
type SessionView struct {
	State       compliance.State        `json:"state"`
	VideoEnded  bool                    `json:"video_ended"`
	ReachedEnd  bool                    `json:"reached_end"`
	Answers     map[int]string          `json:"answers"`
	LastAttempt *compliance.QuizAttempt `json:"last_attempt,omitempty"`
	Attempts    int                     `json:"attempts"`
	CanConfirm  bool                    `json:"can_confirm"`
}

// OpenResult - ответ на открытие страницы подтверждения
type OpenResult struct {
	Content ContentView `json:"content"`
	Session SessionView `json:"session"`
}

// ConfirmResult - ответ на успешное подтверждение
type ConfirmResult struct {
	Signature        *entity.MandatoryContentSignature `json:"signature,omitempty"`
	AlreadyConfirmed bool                              `json:"already_confirmed"`
	Status           *compliance.Status                `json:"status"`
	RedirectTo       string                            `json:"redirect_to"`
	RedirectAfterMs  int                               `json:"redirect_after_ms"`
}

// ComplianceService реализует гейт обязательного контента и сценарий подтверждения
type ComplianceService struct {
	gate          *compliance.Gate
	sessions      *compliance.SessionStore
	contentRepo   repository.MandatoryContentRepository
	signatureRepo repository.SignatureRepository
	cacheRepo     repository.CacheRepository
	ipResolver    IPResolver
	publisher     RealtimePublisher
	config        compliance.Config
	now           func() time.Time
}

// NewComplianceService создает новый сервис соответствия
func NewComplianceService(
	contentRepo repository.MandatoryContentRepository,
	signatureRepo repository.SignatureRepository,
	cacheRepo repository.CacheRepository,
	ipResolver IPResolver,
	publisher RealtimePublisher,
	config compliance.Config,
) *ComplianceService {
	return &ComplianceService{
		gate:          compliance.NewGate(contentRepo, signatureRepo),
		sessions:      compliance.NewSessionStore(cacheRepo, config.SessionTTL),
		contentRepo:   contentRepo,
		signatureRepo: signatureRepo,
		cacheRepo:     cacheRepo,
		ipResolver:    ipResolver,
		publisher:     publisher,
		config:        config,
		now:           time.Now,
	}
}

// Status возвращает статус соответствия пользователя.
// refresh=true пересчитывает статус (вход в систему), иначе используется кеш.
// Статус, полученный в режиме fail-open, не кешируется.
func (s *ComplianceService) Status(ctx context.Context, user *entity.Profile, refresh bool) (*compliance.Status, error) {
	key := compliance.StatusKey(user.ID)

	if !refresh {
		var cached compliance.Status
		err := s.cacheRepo.GetJSON(key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[ComplianceService] Ошибка чтения кеша статуса пользователя %s: %v", user.ID, err)
		}
	}

	result := s.gate.FindPending(ctx, user.ID, user.Audience())
	status := compliance.StatusFrom(result, s.now())

	if !status.Degraded {
		if err := s.cacheRepo.SetJSON(key, status, s.config.StatusTTL); err != nil {
			log.Printf("[ComplianceService] Ошибка записи кеша статуса пользователя %s: %v", user.ID, err)
		}
	}
	return status, nil
}

// InvalidateStatus удаляет закешированный статус пользователя
func (s *ComplianceService) InvalidateStatus(userID uuid.UUID) {
	if err := s.cacheRepo.Delete(compliance.StatusKey(userID)); err != nil {
		log.Printf("[ComplianceService] Ошибка сброса кеша статуса пользователя %s: %v", userID, err)
	}
}

// Open открывает страницу подтверждения. Открыть можно только текущий непройденный контент.
func (s *ComplianceService) Open(ctx context.Context, user *entity.Profile, contentID uuid.UUID) (*OpenResult, error) {
	content, session, err := s.sessionFor(ctx, user, contentID)
	if err != nil {
		return nil, err
	}
	return &OpenResult{
		Content: contentView(content),
		Session: sessionView(session),
	}, nil
}

// RecordEvent обрабатывает событие плеера или прокрутки
func (s *ComplianceService) RecordEvent(ctx context.Context, user *entity.Profile, contentID uuid.UUID, event compliance.Event) (*SessionView, error) {
	_, session, err := s.sessionFor(ctx, user, contentID)
	if err != nil {
		return nil, err
	}

	changed, err := session.ApplyEvent(event, s.config.ScrollTolerancePx, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.sessions.Save(session); err != nil {
			return nil, err
		}
		log.Printf("[ComplianceService] Пользователь %s, контент %s: событие %s, состояние %s",
			user.ID, contentID, event.Type, session.State)
	}

	view := sessionView(session)
	return &view, nil
}

// SelectAnswer сохраняет выбранный вариант ответа
func (s *ComplianceService) SelectAnswer(ctx context.Context, user *entity.Profile, contentID uuid.UUID, index int, option string) (*SessionView, error) {
	content, session, err := s.sessionFor(ctx, user, contentID)
	if err != nil {
		return nil, err
	}

	if err := session.SelectAnswer(content.Questions(), index, option, s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	view := sessionView(session)
	return &view, nil
}

// SubmitQuiz проверяет квиз. Неполные ответы отклоняются без записи.
func (s *ComplianceService) SubmitQuiz(ctx context.Context, user *entity.Profile, contentID uuid.UUID, answers map[int]string) (*SessionView, error) {
	content, session, err := s.sessionFor(ctx, user, contentID)
	if err != nil {
		return nil, err
	}

	attempt, err := session.SubmitQuiz(content.Questions(), answers, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	log.Printf("[ComplianceService] Пользователь %s, контент %s: попытка %d, результат %d%% (%d/%d)",
		user.ID, contentID, session.Attempts, attempt.Score, attempt.Correct, attempt.Total)

	view := sessionView(session)
	return &view, nil
}

// Confirm записывает подпись. Повторные нажатия блокируются на время обработки первого.
// При ошибке записи сессия возвращается в Confirmable, пользователь может повторить.
func (s *ComplianceService) Confirm(ctx context.Context, user *entity.Profile, contentID uuid.UUID, meta ConfirmMeta) (*ConfirmResult, error) {
	content, session, err := s.sessionFor(ctx, user, contentID)
	if err != nil {
		return nil, err
	}
	if session.State == compliance.StateConfirmed {
		return s.completeResult(ctx, user, nil, true)
	}

	token, err := s.sessions.AcquireConfirmLock(user.ID, contentID, s.config.ConfirmLockTTL)
	if err != nil {
		if errors.Is(err, apperrors.ErrConfirmationInProgress) {
			log.Printf("[ComplianceService] Повторное подтверждение контента %s пользователем %s отклонено: запрос уже обрабатывается", contentID, user.ID)
		}
		return nil, err
	}
	defer func() {
		if err := s.sessions.ReleaseConfirmLock(user.ID, contentID, token); err != nil {
			log.Printf("[ComplianceService] Ошибка снятия блокировки подтверждения %s/%s: %v", user.ID, contentID, err)
		}
	}()

	// Блокировка свободна, значит предыдущая обработка прервалась, не завершив сессию
	if session.State == compliance.StateConfirming {
		log.Printf("[ComplianceService] Сессия %s/%s осталась в состоянии confirming, возвращаем в confirmable", user.ID, contentID)
		session.FailConfirm(s.now())
	}

	if err := session.BeginConfirm(s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	signature := s.buildSignature(content, session, user.ID, meta, token)

	alreadyConfirmed := false
	if err := s.signatureRepo.Create(ctx, signature); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			log.Printf("[ComplianceService] Ошибка записи подписи контента %s пользователем %s: %v", contentID, user.ID, err)
			session.FailConfirm(s.now())
			if saveErr := s.sessions.Save(session); saveErr != nil {
				log.Printf("[ComplianceService] Ошибка сохранения сессии после неудачной подписи: %v", saveErr)
			}
			return nil, fmt.Errorf("failed to save signature: %w", err)
		}
		log.Printf("[ComplianceService] Подпись контента %s пользователем %s уже существует, подтверждение идемпотентно", contentID, user.ID)
		alreadyConfirmed = true
		signature = nil
	}

	session.CompleteConfirm(s.now())
	if err := s.sessions.Save(session); err != nil {
		log.Printf("[ComplianceService] Ошибка сохранения сессии после подписи: %v", err)
	}

	if signature != nil {
		log.Printf("[ComplianceService] Пользователь %s подтвердил контент %s (score=%d, ip=%s)",
			user.ID, contentID, signature.Score, signature.IPAddress)
	}
	return s.completeResult(ctx, user, signature, alreadyConfirmed)
}

func (s *ComplianceService) completeResult(ctx context.Context, user *entity.Profile, signature *entity.MandatoryContentSignature, alreadyConfirmed bool) (*ConfirmResult, error) {
	s.InvalidateStatus(user.ID)
	status, err := s.Status(ctx, user, true)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.SendToUser(user.ID, websocket.EventComplianceStatus, status); err != nil {
			log.Printf("[ComplianceService] Ошибка отправки статуса пользователю %s: %v", user.ID, err)
		}
	}

	return &ConfirmResult{
		Signature:        signature,
		AlreadyConfirmed: alreadyConfirmed,
		Status:           status,
		RedirectTo:       compliance.HomePath,
		RedirectAfterMs:  s.config.RedirectDelayMs,
	}, nil
}

func (s *ComplianceService) buildSignature(
	content *entity.MandatoryContent,
	session *compliance.Session,
	userID uuid.UUID,
	meta ConfirmMeta,
	lockToken string,
) *entity.MandatoryContentSignature {
	ip := entity.IPAddressUnknown
	if s.ipResolver != nil {
		ip = s.ipResolver.Resolve(meta.ClientIP, meta.ReportedIP)
	}

	idempotencyKey := meta.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = lockToken
	}

	signature := &entity.MandatoryContentSignature{
		ID:               uuid.New(),
		ContentID:        content.ID,
		UserID:           userID,
		Score:            session.Score(),
		Confirmed:        true,
		ConfirmationText: entity.ConfirmationTextFor(content.Type),
		IPAddress:        ip,
		UserAgent:        meta.UserAgent,
		Success:          true,
		IdempotencyKey:   idempotencyKey,
		CreatedAt:        s.now().UTC().Truncate(time.Microsecond),
	}
	signature.EvidenceHash = compliance.EvidenceHash(signature)
	return signature
}

// sessionFor загружает контент и сессию. Новая сессия создаётся только для текущего непройденного контента.
func (s *ComplianceService) sessionFor(ctx context.Context, user *entity.Profile, contentID uuid.UUID) (*entity.MandatoryContent, *compliance.Session, error) {
	content, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, nil, err
	}
	if !content.MatchesAudience(user.Audience()) {
		return nil, nil, fmt.Errorf("%w: content is not addressed to user audience", apperrors.ErrForbidden)
	}

	session, err := s.sessions.Load(user.ID, contentID)
	switch {
	case err == nil && session.State == compliance.StateConfirmed:
		return content, session, nil
	case err == nil && !content.Active:
		return nil, nil, fmt.Errorf("%w: content %s is inactive", apperrors.ErrConflict, contentID)
	case err == nil && session.MatchesContent(content):
		return content, session, nil
	case err == nil:
		log.Printf("[ComplianceService] Контент %s изменён после начала сессии пользователя %s, прохождение начинается заново", contentID, user.ID)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, nil, err
	}

	if !content.Active {
		return nil, nil, fmt.Errorf("%w: content %s is inactive", apperrors.ErrConflict, contentID)
	}
	status, err := s.Status(ctx, user, true)
	if err != nil {
		return nil, nil, err
	}
	if !status.Pending || status.ContentID == nil || *status.ContentID != contentID {
		return nil, nil, fmt.Errorf("%w: content %s is not the current pending item", apperrors.ErrConflict, contentID)
	}

	session = compliance.NewSession(content, user.ID, s.now())
	if err := s.sessions.Save(session); err != nil {
		return nil, nil, err
	}
	log.Printf("[ComplianceService] Пользователь %s начал прохождение контента %s (%s)", user.ID, contentID, content.Type)
	return content, session, nil
}

func contentView(content *entity.MandatoryContent) ContentView {
	view := ContentView{
		ID:               content.ID,
		Title:            content.Title,
		Description:      content.Description,
		Type:             content.Type,
		ConfirmationText: entity.ConfirmationTextFor(content.Type),
	}
	if content.IsVideo() {
		view.ContentURL = content.ContentURL
	} else {
		view.ContentText = content.ContentText
	}
	if content.HasQuiz() {
		for i, q := range content.Questions() {
			view.Questions = append(view.Questions, PublicQuestion{
				Index:    i,
				Question: q.Question,
				Options:  q.Options,
			})
		}
	}
	return view
}

func sessionView(session *compliance.Session) SessionView {
	return SessionView{
		State:       session.State,
		VideoEnded:  session.VideoEnded,
		ReachedEnd:  session.ReachedEnd,
		Answers:     session.Answers,
		LastAttempt: session.LastAttempt,
		Attempts:    session.Attempts,
		CanConfirm:  session.CanConfirm(),
	}
}
