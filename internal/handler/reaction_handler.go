package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/service"
)

type ReactionHandler interface {
	AddReaction(c *gin.Context)
	RemoveReaction(c *gin.Context)
	GetReactions(c *gin.Context)
}

type reactionHandler struct {
	service service.ReactionService
}

func NewReactionHandler(service service.ReactionService) ReactionHandler {
	return &reactionHandler{service: service}
}

type addReactionRequest struct {
	MessageID string `json:"messageId" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
}

// AddReaction adds or replaces the caller's reaction on a message.
func (h *reactionHandler) AddReaction(c *gin.Context) {
	var req addReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageId and emoji are required"})
		return
	}

	reaction, err := h.service.AddOrReplace(c.Request.Context(), auth.Identity(c), req.MessageID, req.Emoji)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, reaction)
}

// RemoveReaction deletes the caller's reaction. Removing a reaction that
// does not exist succeeds without effect.
func (h *reactionHandler) RemoveReaction(c *gin.Context) {
	reaction, err := h.service.Remove(c.Request.Context(), auth.Identity(c), c.Param("messageId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": reaction != nil})
}

// GetReactions lists a message's reactions.
func (h *reactionHandler) GetReactions(c *gin.Context) {
	reactions, err := h.service.ListForMessage(c.Request.Context(), auth.Identity(c), c.Param("messageId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, reactions)
}
