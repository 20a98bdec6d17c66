package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rahulm682/Chat-App/internal/hub"
)

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
}

type monitorHandler struct {
	monitorService *hub.MonitorService
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitorService *hub.MonitorService) MonitorHandler {
	return &monitorHandler{
		monitorService: monitorService,
	}
}

// GetHubStats returns current hub statistics: connections, identities,
// joined rooms and viewing state.
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitorService.GetStats())
}
