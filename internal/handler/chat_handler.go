package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/service"
)

type ChatHandler interface {
	GetChats(c *gin.Context)
	AccessChat(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
}

func NewChatHandler(service service.ChatService) ChatHandler {
	return &chatHandler{service: service}
}

// GetChats returns the caller's chats with unread counts recomputed on
// every call.
func (h *chatHandler) GetChats(c *gin.Context) {
	summaries, err := h.service.ListWithUnread(c.Request.Context(), auth.Identity(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

type accessChatRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// AccessChat finds or creates the 1:1 chat with another user.
func (h *chatHandler) AccessChat(c *gin.Context) {
	var req accessChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	chat, created, err := h.service.AccessDirect(c.Request.Context(), auth.Identity(c), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}
