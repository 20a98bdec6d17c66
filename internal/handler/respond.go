package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/repo"
	"github.com/rahulm682/Chat-App/internal/service"
)

// fail maps service errors onto the REST error taxonomy: not-found and
// authorization failures are user-visible and non-fatal, everything else is
// a transient storage failure the client may retry.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrChatNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidEmoji),
		errors.Is(err, repo.ErrInvalidID),
		errors.Is(err, repo.ErrInvalidChatID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
