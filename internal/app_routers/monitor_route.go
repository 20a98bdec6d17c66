package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/configuration"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorGroup := router.Group("/api/monitor")
	{
		// GET /api/monitor/stats - Get hub statistics
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
