package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetOverview returns statistics across every project the caller can see
// GET /api/dashboard
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	resp, err := h.dashboardService.Overview(actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
