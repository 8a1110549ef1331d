package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger проверяет доступность зависимости
type Pinger func(ctx context.Context) error

// MetricsSource отдаёт метрики realtime-канала
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

// HealthHandler отвечает на проверки доступности
type HealthHandler struct {
	checks    map[string]Pinger
	websocket MetricsSource
}

// NewHealthHandler создает обработчик /health
func NewHealthHandler(checks map[string]Pinger, websocket MetricsSource) *HealthHandler {
	return &HealthHandler{checks: checks, websocket: websocket}
}

// Health возвращает 200, если все зависимости доступны, иначе 503
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	body := gin.H{
		"status":     http.StatusText(status),
		"components": components,
		"time":       time.Now().UTC(),
	}
	if h.websocket != nil {
		body["websocket"] = h.websocket.GetMetrics()
	}
	c.JSON(status, body)
}
