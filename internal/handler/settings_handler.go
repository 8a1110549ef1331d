package handler

import (
	"context"
	"net/http"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/handler/dto"
	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettingsManager - настройки админки
type SettingsManager interface {
	List(ctx context.Context) ([]entity.AppSetting, error)
	Update(ctx context.Context, adminID uuid.UUID, key, value string) (*entity.AppSetting, error)
}

// SettingsHandler обрабатывает запросы настроек
type SettingsHandler struct {
	settings SettingsManager
}

// NewSettingsHandler создает новый обработчик настроек
func NewSettingsHandler(settings SettingsManager) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List возвращает все настройки
// GET /api/admin/settings
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		handleError(c, "SettingsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// Update меняет значение настройки
// PUT /api/admin/settings/:key
func (h *SettingsHandler) Update(c *gin.Context) {
	admin, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dto.ValidationMessage(err)})
		return
	}

	setting, err := h.settings.Update(c.Request.Context(), admin.ID, c.Param("key"), req.Value)
	if err != nil {
		handleError(c, "SettingsHandler", err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
