package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/auth"
	"github.com/rahulm682/Chat-App/internal/configuration"
)

func ReactionRouters(router *gin.Engine, container *configuration.Container) {
	reactionRoute := router.Group("/api/reactions")
	reactionRoute.Use(auth.Middleware(container.Verifier))
	{
		reactionRoute.POST("", container.ReactionHandler.AddReaction)
		reactionRoute.DELETE("/:messageId", container.ReactionHandler.RemoveReaction)
		reactionRoute.GET("/:messageId", container.ReactionHandler.GetReactions)
	}
}
