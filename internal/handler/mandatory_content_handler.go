package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/domain/repository"
	"github.com/cresciperdi/intranet-api/internal/handler/dto"
	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/cresciperdi/intranet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContentManager - администрирование обязательного контента
type ContentManager interface {
	Create(ctx context.Context, adminID uuid.UUID, input service.ContentInput) (*entity.MandatoryContent, error)
	Update(ctx context.Context, id uuid.UUID, input service.ContentInput) (*entity.MandatoryContent, error)
	SetActive(ctx context.Context, id uuid.UUID, active, notify bool) (*entity.MandatoryContent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.MandatoryContent, error)
	List(ctx context.Context, filters repository.MandatoryContentFilters, page, pageSize int) (*service.ContentListResponse, error)
}

// ComplianceReporter - отчёты по подписям
type ComplianceReporter interface {
	Summary(ctx context.Context, contentID uuid.UUID) (*service.ContentSummary, error)
	Signatures(ctx context.Context, contentID uuid.UUID, page, pageSize int) (*service.SignatureListResponse, error)
	Export(ctx context.Context, contentID uuid.UUID, format string) (*service.ExportFile, error)
}

// MandatoryContentHandler обрабатывает запросы админки обязательного контента
type MandatoryContentHandler struct {
	contents ContentManager
	reports  ComplianceReporter
}

// NewMandatoryContentHandler создает новый обработчик админки
func NewMandatoryContentHandler(contents ContentManager, reports ComplianceReporter) *MandatoryContentHandler {
	return &MandatoryContentHandler{
		contents: contents,
		reports:  reports,
	}
}

// CreateContent создает обязательный контент
// POST /api/admin/mandatory-contents
func (h *MandatoryContentHandler) CreateContent(c *gin.Context) {
	admin, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var req dto.MandatoryContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}

	content, err := h.contents.Create(c.Request.Context(), admin.ID, req.ToInput())
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusCreated, content)
}

// UpdateContent изменяет контент
// PUT /api/admin/mandatory-contents/:id
func (h *MandatoryContentHandler) UpdateContent(c *gin.Context) {
	contentID := c.MustGet(ContextContentID).(uuid.UUID)
	var req dto.MandatoryContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}

	content, err := h.contents.Update(c.Request.Context(), contentID, req.ToInput())
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// SetActive включает или выключает контент
// PUT /api/admin/mandatory-contents/:id/active
func (h *MandatoryContentHandler) SetActive(c *gin.Context) {
	contentID := c.MustGet(ContextContentID).(uuid.UUID)
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}

	content, err := h.contents.SetActive(c.Request.Context(), contentID, *req.Active, req.Notify)
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// GetContent возвращает контент вместе с правильными ответами
// GET /api/admin/mandatory-contents/:id
func (h *MandatoryContentHandler) GetContent(c *gin.Context) {
	contentID := c.MustGet(ContextContentID).(uuid.UUID)

	content, err := h.contents.GetByID(c.Request.Context(), contentID)
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// ListContents возвращает страницу контента с фильтрами
// GET /api/admin/mandatory-contents?active=&audience=&type=&search=&page=&page_size=
func (h *MandatoryContentHandler) ListContents(c *gin.Context) {
	var query dto.ContentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}
	filters := repository.MandatoryContentFilters{
		Active:   query.Active,
		Audience: query.Audience,
		Type:     query.Type,
		Search:   query.Search,
	}

	list, err := h.contents.List(c.Request.Context(), filters, query.Page, query.PageSize)
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetSummary возвращает сводку подписей по контенту
// GET /api/admin/mandatory-contents/:id/summary
func (h *MandatoryContentHandler) GetSummary(c *gin.Context) {
	contentID := c.MustGet(ContextContentID).(uuid.UUID)

	summary, err := h.reports.Summary(c.Request.Context(), contentID)
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListSignatures возвращает страницу подписей
// GET /api/admin/mandatory-contents/:id/signatures
func (h *MandatoryContentHandler) ListSignatures(c *gin.Context) {
	contentID := c.MustGet(ContextContentID).(uuid.UUID)
	page, pageSize := pageParams(c)

	list, err := h.reports.Signatures(c.Request.Context(), contentID, page, pageSize)
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExportSignatures выгружает подписи в CSV или Excel
// GET /api/admin/mandatory-contents/:id/signatures/export?format=csv|xlsx
func (h *MandatoryContentHandler) ExportSignatures(c *gin.Context) {
	contentID := c.MustGet(ContextContentID).(uuid.UUID)
	format := c.DefaultQuery("format", "csv")

	file, err := h.reports.Export(c.Request.Context(), contentID, format)
	if err != nil {
		handleError(c, "MandatoryContentHandler", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
