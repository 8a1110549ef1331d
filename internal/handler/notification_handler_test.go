package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/middleware"
	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/cresciperdi/intranet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newNotificationRouter(reader NotificationReader, profile *entity.Profile) *gin.Engine {
	h := NewNotificationHandler(reader)
	router := gin.New()
	group := router.Group("/api/notifications", asUser(profile))
	group.GET("", h.List)
	group.GET("/unread-count", h.UnreadCount)
	group.POST("/read-all", h.MarkAllRead)
	group.POST("/:id/read", middleware.ExtractUUIDParam("id", ContextNotificationID), h.MarkRead)
	return router
}

func TestNotificationHandler(t *testing.T) {
	profile := &entity.Profile{ID: uuid.New(), Role: entity.RoleColaborador}

	t.Run("список непрочитанных", func(t *testing.T) {
		reader := new(MockNotificationReader)
		reader.On("List", mock.Anything, profile.ID, true, 1, 20).
			Return(&service.NotificationListResponse{Total: 3, Page: 1, PerPage: 20}, nil)

		w := doRequest(newNotificationRouter(reader, profile), http.MethodGet, "/api/notifications?unread=true", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3), parseJSONResponse(t, w)["total"])
	})

	t.Run("счётчик", func(t *testing.T) {
		reader := new(MockNotificationReader)
		reader.On("UnreadCount", mock.Anything, profile.ID).Return(int64(7), nil)

		w := doRequest(newNotificationRouter(reader, profile), http.MethodGet, "/api/notifications/unread-count", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(7), parseJSONResponse(t, w)["unread"])
	})

	t.Run("чужое уведомление", func(t *testing.T) {
		reader := new(MockNotificationReader)
		id := uuid.New()
		reader.On("MarkRead", mock.Anything, profile.ID, id).Return(apperrors.ErrNotFound)

		w := doRequest(newNotificationRouter(reader, profile), http.MethodPost, "/api/notifications/"+id.String()+"/read", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("отметить прочитанным", func(t *testing.T) {
		reader := new(MockNotificationReader)
		id := uuid.New()
		reader.On("MarkRead", mock.Anything, profile.ID, id).Return(nil)

		w := doRequest(newNotificationRouter(reader, profile), http.MethodPost, "/api/notifications/"+id.String()+"/read", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("отметить все", func(t *testing.T) {
		reader := new(MockNotificationReader)
		reader.On("MarkAllRead", mock.Anything, profile.ID).Return(int64(4), nil)

		w := doRequest(newNotificationRouter(reader, profile), http.MethodPost, "/api/notifications/read-all", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(4), parseJSONResponse(t, w)["updated"])
	})
}

func TestSettingsHandler(t *testing.T) {
	admin := &entity.Profile{ID: uuid.New(), Role: entity.RoleAdmin}
	newRouter := func(settings SettingsManager) *gin.Engine {
		h := NewSettingsHandler(settings)
		router := gin.New()
		group := router.Group("/api/admin/settings", asUser(admin))
		group.GET("", h.List)
		group.PUT("/:key", h.Update)
		return router
	}

	t.Run("список", func(t *testing.T) {
		settings := new(MockSettingsManager)
		settings.On("List", mock.Anything).Return([]entity.AppSetting{{Key: "notifications.push_enabled", Value: "true"}}, nil)

		w := doRequest(newRouter(settings), http.MethodGet, "/api/admin/settings", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, parseJSONResponse(t, w)["settings"], 1)
	})

	t.Run("обновление", func(t *testing.T) {
		settings := new(MockSettingsManager)
		settings.On("Update", mock.Anything, admin.ID, "notifications.email_enabled", "true").
			Return(&entity.AppSetting{Key: "notifications.email_enabled", Value: "true"}, nil)

		w := doRequest(newRouter(settings), http.MethodPut, "/api/admin/settings/notifications.email_enabled", map[string]string{"value": "true"})

		assert.Equal(t, http.StatusOK, w.Code)
		settings.AssertExpectations(t)
	})

	t.Run("неизвестный ключ", func(t *testing.T) {
		settings := new(MockSettingsManager)
		settings.On("Update", mock.Anything, admin.ID, "theme", "dark").
			Return(nil, fmt.Errorf("%w: unknown setting key", apperrors.ErrValidation))

		w := doRequest(newRouter(settings), http.MethodPut, "/api/admin/settings/theme", map[string]string{"value": "dark"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestUserHandler_GetMe(t *testing.T) {
	profile := &entity.Profile{ID: uuid.New(), FullName: "Ana", Role: entity.RoleFranqueado}
	router := gin.New()
	router.GET("/api/me", asUser(profile), NewUserHandler().GetMe)

	w := doRequest(router, http.MethodGet, "/api/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, entity.AudienceFranqueados, resp["audience"])
	assert.Equal(t, false, resp["is_admin"])
}

type staticMetrics map[string]interface{}

func (m staticMetrics) GetMetrics() map[string]interface{} { return m }

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("все зависимости доступны", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": ok}, staticMetrics{"active_connections": 2}).Health)

		w := doRequest(router, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := parseJSONResponse(t, w)
		assert.Equal(t, map[string]interface{}{"postgres": "ok", "redis": "ok"}, resp["components"])
		assert.NotNil(t, resp["websocket"])
	})

	t.Run("redis недоступен", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": down}, nil).Health)

		w := doRequest(router, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "connection refused", parseJSONResponse(t, w)["components"].(map[string]interface{})["redis"])
	})
}
