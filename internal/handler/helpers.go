package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/prashnify-api/internal/pkg/clock"
	apperrors "github.com/yourusername/prashnify-api/internal/pkg/errors"
)

// TimeSync возвращает обработчик синхронизации клиентских часов
// (pull-вариант; push идет ping/pong кадрами сокета)
func TimeSync(clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"serverTime": clk.NowMs(),
			"timestamp":  clk.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// handleError стандартизованно маппит доменные ошибки на HTTP-статусы
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	// Конфликты (дубликат ответа, лимит попыток, завершенная викторина)
	// отдаются как 400 с конкретным сообщением
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrCapacity):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
