package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// SSEHandler streams project change events to the board, chat and wizard views.
type SSEHandler struct {
	hub            *services.SSEHub
	projectService *services.ProjectService
}

func NewSSEHandler(hub *services.SSEHub, projectService *services.ProjectService) *SSEHandler {
	return &SSEHandler{
		hub:            hub,
		projectService: projectService,
	}
}

// StreamProjectEvents
// GET /api/projects/:id/events
func (h *SSEHandler) StreamProjectEvents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.projectService.Get(actor(c), id); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID, id)
	defer h.hub.Unsubscribe(clientID)

	log := logger.Module("sse")
	log.Info().Str("client_id", clientID).Uint("project_id", id).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Entity, data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			log.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
