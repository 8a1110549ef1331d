package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/handler/dto"
	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/cresciperdi/intranet-api/internal/service"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextContentID - ключ UUID контента в контексте Gin
const ContextContentID = "contentID"

// ComplianceWorkflow - операции сценария подтверждения обязательного контента
type ComplianceWorkflow interface {
	Status(ctx context.Context, user *entity.Profile, refresh bool) (*compliance.Status, error)
	Open(ctx context.Context, user *entity.Profile, contentID uuid.UUID) (*service.OpenResult, error)
	RecordEvent(ctx context.Context, user *entity.Profile, contentID uuid.UUID, event compliance.Event) (*service.SessionView, error)
	SelectAnswer(ctx context.Context, user *entity.Profile, contentID uuid.UUID, index int, option string) (*service.SessionView, error)
	SubmitQuiz(ctx context.Context, user *entity.Profile, contentID uuid.UUID, answers map[int]string) (*service.SessionView, error)
	Confirm(ctx context.Context, user *entity.Profile, contentID uuid.UUID, meta service.ConfirmMeta) (*service.ConfirmResult, error)
}

// ComplianceHandler обрабатывает запросы страницы подтверждения
type ComplianceHandler struct {
	workflow ComplianceWorkflow
}

// NewComplianceHandler создает новый обработчик сценария подтверждения
func NewComplianceHandler(workflow ComplianceWorkflow) *ComplianceHandler {
	return &ComplianceHandler{workflow: workflow}
}

// GetStatus возвращает статус обязательного контента.
// GET /api/compliance/status?refresh=true
func (h *ComplianceHandler) GetStatus(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	status, err := h.workflow.Status(c.Request.Context(), profile, refresh)
	if err != nil {
		handleError(c, "ComplianceHandler", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// OpenContent открывает страницу подтверждения текущего контента
// GET /api/compliance/contents/:id
func (h *ComplianceHandler) OpenContent(c *gin.Context) {
	profile, contentID, ok := h.subject(c)
	if !ok {
		return
	}
	result, err := h.workflow.Open(c.Request.Context(), profile, contentID)
	if err != nil {
		handleError(c, "ComplianceHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecordEvent принимает события плеера и прокрутки
// POST /api/compliance/contents/:id/events
func (h *ComplianceHandler) RecordEvent(c *gin.Context) {
	profile, contentID, ok := h.subject(c)
	if !ok {
		return
	}
	var req dto.ContentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}

	session, err := h.workflow.RecordEvent(c.Request.Context(), profile, contentID, req.ToEvent())
	if err != nil {
		handleError(c, "ComplianceHandler", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SelectAnswer сохраняет выбранный вариант ответа
// PUT /api/compliance/contents/:id/answers
func (h *ComplianceHandler) SelectAnswer(c *gin.Context) {
	profile, contentID, ok := h.subject(c)
	if !ok {
		return
	}
	var req dto.SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}

	session, err := h.workflow.SelectAnswer(c.Request.Context(), profile, contentID, *req.Index, req.Option)
	if err != nil {
		handleError(c, "ComplianceHandler", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SubmitQuiz проверяет ответы квиза
// POST /api/compliance/contents/:id/quiz
func (h *ComplianceHandler) SubmitQuiz(c *gin.Context) {
	profile, contentID, ok := h.subject(c)
	if !ok {
		return
	}
	var req dto.SubmitQuizRequest
	// Пустое тело допустимо: проверяются уже выбранные ответы
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
			return
		}
	}

	session, err := h.workflow.SubmitQuiz(c.Request.Context(), profile, contentID, req.AnswerMap())
	if err != nil {
		handleError(c, "ComplianceHandler", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Confirm записывает подпись пользователя
// POST /api/compliance/contents/:id/confirm
func (h *ComplianceHandler) Confirm(c *gin.Context) {
	profile, contentID, ok := h.subject(c)
	if !ok {
		return
	}
	idempotencyKey := c.GetHeader("Idempotency-Key")
	if len(idempotencyKey) > dto.MaxIdempotencyKeyLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key must be at most 64 characters"})
		return
	}
	var req dto.ConfirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
			return
		}
	}
	meta := service.ConfirmMeta{
		ClientIP:       c.ClientIP(),
		ReportedIP:     req.ClientIP,
		UserAgent:      c.Request.UserAgent(),
		IdempotencyKey: idempotencyKey,
	}

	result, err := h.workflow.Confirm(c.Request.Context(), profile, contentID, meta)
	if err != nil {
		handleError(c, "ComplianceHandler", err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyConfirmed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *ComplianceHandler) subject(c *gin.Context) (*entity.Profile, uuid.UUID, bool) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, uuid.Nil, false
	}
	contentID, ok := c.MustGet(ContextContentID).(uuid.UUID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return nil, uuid.Nil, false
	}
	return profile, contentID, true
}
