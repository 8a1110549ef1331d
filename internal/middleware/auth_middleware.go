package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Ключи контекста Gin
const (
	ContextUserID  = "user_id"
	ContextProfile = "profile"
)

// AccessTokenCookie - cookie, в которой веб-клиент хранит access-токен
const AccessTokenCookie = "access_token"

// TokenVerifier проверяет access-токен провайдера идентификации
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Identity, error)
}

// ProfileLoader загружает профиль пользователя
type ProfileLoader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	verifier TokenVerifier
	profiles ProfileLoader
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(verifier TokenVerifier, profiles ProfileLoader) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		profiles: profiles,
	}
}

// RequireAuth проверяет токен и загружает активный профиль пользователя
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errorType := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": errorType})
			return
		}

		identity, err := m.verifier.Verify(token)
		if err != nil {
			errorType := "token_invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				errorType = "token_expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": errorType})
			return
		}

		profile, err := m.profiles.GetProfile(c.Request.Context(), identity.UserID)
		if err != nil {
			log.Printf("[AuthMiddleware] Профиль %s недоступен: %v", identity.UserID, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Profile not found or inactive", "error_type": "profile_unavailable"})
			return
		}

		c.Set(ContextUserID, profile.ID)
		c.Set(ContextProfile, profile)
		c.Next()
	}
}

// extractToken берёт токен из заголовка Authorization или из cookie
func extractToken(c *gin.Context) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", "token_format"
		}
		return parts[1], ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, ""
	}
	return "", "token_missing"
}

// AdminOnly пропускает только администраторов. Применяется после RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := CurrentProfile(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !profile.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Next()
	}
}

// CurrentProfile возвращает профиль, загруженный RequireAuth
func CurrentProfile(c *gin.Context) (*entity.Profile, bool) {
	value, exists := c.Get(ContextProfile)
	if !exists {
		return nil, false
	}
	profile, ok := value.(*entity.Profile)
	return profile, ok && profile != nil
}
