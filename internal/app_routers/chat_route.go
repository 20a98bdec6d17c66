package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/configuration"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/chats")
	chatRoute.Use(auth.Middleware(container.Verifier))
	{
		chatRoute.GET("", container.ChatHandler.GetChats)
		chatRoute.POST("", container.ChatHandler.AccessChat)
	}
}
