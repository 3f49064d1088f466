package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// WizardHandler drives the six-step project creation flow.
type WizardHandler struct {
	wizardService *services.WizardService
}

func NewWizardHandler(wizardService *services.WizardService) *WizardHandler {
	return &WizardHandler{wizardService: wizardService}
}

// CompleteStep dispatches to the step's save operation. Steps 4 and 5 take no body.
// POST /api/projects/:id/wizard/steps/:step
func (h *WizardHandler) CompleteStep(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		response.BadRequest(c, "invalid step")
		return
	}

	var project *models.Project
	switch step {
	case models.StepName:
		var req services.SaveNameRequest
		if !bindJSON(c, &req) {
			return
		}
		project, err = h.wizardService.SaveName(actor(c), id, &req)
	case models.StepDescription:
		var req services.SaveDescriptionRequest
		if !bindJSON(c, &req) {
			return
		}
		project, err = h.wizardService.SaveDescription(c.Request.Context(), actor(c), id, &req)
	case models.StepQuestions:
		var req services.SaveAnswersRequest
		if !bindJSON(c, &req) {
			return
		}
		project, err = h.wizardService.SaveAnswers(actor(c), id, &req)
	case models.StepFeatures:
		project, err = h.wizardService.CompleteFeatures(actor(c), id)
	case models.StepPrompts:
		project, err = h.wizardService.CompletePrompts(actor(c), id)
	case models.StepSummary:
		project, err = h.wizardService.Finalize(c.Request.Context(), actor(c), id)
	default:
		response.BadRequest(c, "invalid step")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Back returns to the previous step
// POST /api/projects/:id/wizard/back
func (h *WizardHandler) Back(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	project, err := h.wizardService.PreviousStep(actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// SaveDraft stores edits without advancing
// PUT /api/projects/:id/wizard/draft
func (h *WizardHandler) SaveDraft(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SaveDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.wizardService.SaveDraft(actor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// GenerateProjectPrompt
// POST /api/projects/:id/prompt
func (h *WizardHandler) GenerateProjectPrompt(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	project, err := h.wizardService.GenerateProjectPrompt(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// GenerateFeaturePrompt
// POST /api/projects/:id/features/:featureId/prompt
func (h *WizardHandler) GenerateFeaturePrompt(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	featureID, ok := paramID(c, "featureId")
	if !ok {
		return
	}

	feature, err := h.wizardService.GenerateFeaturePrompt(c.Request.Context(), actor(c), id, featureID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, feature)
}
