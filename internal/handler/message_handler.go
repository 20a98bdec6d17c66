package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/service"
)

type MessageHandler interface {
	SendMessage(c *gin.Context)
	GetMessages(c *gin.Context)
	MarkRead(c *gin.Context)
}

type messageHandler struct {
	service service.MessageService
}

func NewMessageHandler(service service.MessageService) MessageHandler {
	return &messageHandler{service: service}
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId" binding:"required"`
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
}

// SendMessage persists a message and triggers fan-out to all participants.
func (h *messageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId and content are required"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), auth.Identity(c), req.ChatID, req.Content, req.Type)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// GetMessages serves one page of chat history, newest page first, each page
// ordered oldest-first.
func (h *messageHandler) GetMessages(c *gin.Context) {
	chatID := c.Param("chatId")

	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "15"), 10, 64)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	result, err := h.service.History(c.Request.Context(), auth.Identity(c), chatID, page, limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type markReadRequest struct {
	ChatID string `json:"chatId" binding:"required"`
}

// MarkRead is the explicit read acknowledgment for a whole chat.
func (h *messageHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
		return
	}

	modified, err := h.service.MarkChatRead(c.Request.Context(), auth.Identity(c), req.ChatID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "modifiedCount": modified})
}
