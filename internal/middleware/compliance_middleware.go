package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/service/compliance"
	"github.com/gin-gonic/gin"
)

// ComplianceChecker возвращает статус обязательного контента пользователя
type ComplianceChecker interface {
	Status(ctx context.Context, user *entity.Profile, refresh bool) (*compliance.Status, error)
}

// ComplianceGate блокирует маршруты приложения, пока у пользователя есть непройденный
// обязательный контент. Ошибка проверки пропускает запрос.
func ComplianceGate(checker ComplianceChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := CurrentProfile(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		status, err := checker.Status(c.Request.Context(), profile, false)
		if err != nil {
			log.Printf("[ComplianceGate] Ошибка проверки статуса пользователя %s: %v. Пропускаем запрос (fail-open).", profile.ID, err)
			c.Next()
			return
		}

		if status.Pending && status.ContentID != nil {
			c.AbortWithStatusJSON(http.StatusPreconditionRequired, gin.H{
				"error":       "mandatory_content_pending",
				"content_id":  status.ContentID,
				"redirect_to": status.RedirectTo,
			})
			return
		}
		c.Next()
	}
}
