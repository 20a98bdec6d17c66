package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/configuration"
)

func MessageRouters(router *gin.Engine, container *configuration.Container) {
	messageRoute := router.Group("/api/messages")
	messageRoute.Use(auth.Middleware(container.Verifier))
	{
		messageRoute.POST("", container.MessageHandler.SendMessage)
		messageRoute.GET("/:chatId", container.MessageHandler.GetMessages)
		messageRoute.POST("/mark-read", container.MessageHandler.MarkRead)
	}
}
