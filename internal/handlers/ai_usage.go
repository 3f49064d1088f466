package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// AIUsageHandler provides endpoints for AI usage statistics.
type AIUsageHandler struct {
	usageService *services.AIUsageService
}

func NewAIUsageHandler(usageService *services.AIUsageService) *AIUsageHandler {
	return &AIUsageHandler{usageService: usageService}
}

// GetStats returns aggregated AI usage statistics.
// GET /api/ai-usage/stats?start_date=&end_date=&project_id=
func (h *AIUsageHandler) GetStats(c *gin.Context) {
	var filter services.UsageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stats, err := h.usageService.GetStats(&filter)
	if err != nil {
		response.ServerError(c, "failed to get AI usage stats: "+err.Error())
		return
	}

	response.Success(c, stats)
}

// GetBreakdown returns AI usage grouped by operation and provider.
// GET /api/ai-usage/breakdown
func (h *AIUsageHandler) GetBreakdown(c *gin.Context) {
	var filter services.UsageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rows, err := h.usageService.GetBreakdown(&filter)
	if err != nil {
		response.ServerError(c, "failed to get AI usage breakdown: "+err.Error())
		return
	}

	response.Success(c, rows)
}
