package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// List returns the latest messages, oldest first
// GET /api/projects/:id/messages?limit=100
func (h *ChatHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	messages, err := h.chatService.List(actor(c), id, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, messages)
}

// Send
// POST /api/projects/:id/messages
func (h *ChatHandler) Send(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.Send(actor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}
