package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type QuestionHandler struct {
	questionService *services.QuestionService
}

func NewQuestionHandler(questionService *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// Generate creates the clarifying questions once; later calls return the stored set
// POST /api/projects/:id/questions/generate
func (h *QuestionHandler) Generate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.Generate(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, questions)
}

// List
// GET /api/projects/:id/questions
func (h *QuestionHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.List(actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, questions)
}

// ListAnswers
// GET /api/projects/:id/answers
func (h *QuestionHandler) ListAnswers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	answers, err := h.questionService.ListAnswers(actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, answers)
}

// SaveAnswer upserts the answer to one question
// PUT /api/projects/:id/answers
func (h *QuestionHandler) SaveAnswer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SaveAnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	answer, err := h.questionService.SaveAnswer(actor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, answer)
}
