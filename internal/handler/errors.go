package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	apperrors "github.com/cresciperdi/intranet-api/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// handleError переводит ошибки сервисов в HTTP-ответы
func handleError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConfirmationInProgress):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error(), "error_type": "confirmation_in_progress"})
	case errors.Is(err, apperrors.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "already_confirmed"})
	case errors.Is(err, apperrors.ErrNotConfirmable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "not_confirmable"})
	case errors.Is(err, apperrors.ErrQuizIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "quiz_incomplete"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("[%s] Internal server error: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// pageParams читает page и page_size из query. Границы проверяет сервис.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
