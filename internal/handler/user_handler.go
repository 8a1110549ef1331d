package handler

import (
	"net/http"

	"github.com/cresciperdi/intranet-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// UserHandler обрабатывает запросы, связанные с пользователями
type UserHandler struct{}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// GetMe возвращает профиль текущего пользователя и его аудиторию
// GET /api/me
func (h *UserHandler) GetMe(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":  profile,
		"audience": profile.Audience(),
		"is_admin": profile.IsAdmin(),
	})
}
