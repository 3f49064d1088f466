package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type FeatureHandler struct {
	featureService *services.FeatureService
	taskService    *services.TaskService
}

func NewFeatureHandler(featureService *services.FeatureService, taskService *services.TaskService) *FeatureHandler {
	return &FeatureHandler{
		featureService: featureService,
		taskService:    taskService,
	}
}

// List
// GET /api/projects/:id/features
func (h *FeatureHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	features, err := h.featureService.List(actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, features)
}

// Create adds one or more features; titles already in the catalog are skipped
// POST /api/projects/:id/features
func (h *FeatureHandler) Create(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.CreateFeaturesRequest
	if !bindJSON(c, &req) {
		return
	}

	features, err := h.featureService.CreateMany(actor(c), id, req.Features)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, features)
}

// Generate asks the LLM for feature suggestions
// POST /api/projects/:id/features/generate
func (h *FeatureHandler) Generate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	features, err := h.featureService.Generate(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, features)
}

// Update
// PUT /api/projects/:id/features/:featureId
func (h *FeatureHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	featureID, ok := paramID(c, "featureId")
	if !ok {
		return
	}
	var req services.UpdateFeatureRequest
	if !bindJSON(c, &req) {
		return
	}

	feature, err := h.featureService.Update(actor(c), id, featureID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, feature)
}

// Delete removes the feature and its tasks
// DELETE /api/projects/:id/features/:featureId
func (h *FeatureHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	featureID, ok := paramID(c, "featureId")
	if !ok {
		return
	}

	if err := h.featureService.Delete(actor(c), id, featureID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "feature deleted successfully"})
}

// Promote copies a feature onto the task board
// POST /api/projects/:id/features/:featureId/task
func (h *FeatureHandler) Promote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	featureID, ok := paramID(c, "featureId")
	if !ok {
		return
	}
	var req services.PromoteFeatureRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.PromoteFeature(actor(c), id, featureID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Demote removes the feature's tasks from the board
// DELETE /api/projects/:id/features/:featureId/task
func (h *FeatureHandler) Demote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	featureID, ok := paramID(c, "featureId")
	if !ok {
		return
	}

	removed, err := h.taskService.DemoteFeature(actor(c), id, featureID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"removed": removed})
}
