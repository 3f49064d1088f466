package services

import (
	"sync"
)

// Event entities
const (
	EntityProject  = "project"
	EntityFeature  = "feature"
	EntityTask     = "task"
	EntityQuestion = "question"
	EntityAnswer   = "answer"
	EntityMember   = "member"
	EntityMessage  = "message"
)

// Event actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionMoved   = "moved"
)

// ProjectEvent tells subscribers that an entity of a project changed.
// Clients refetch the entity; the event carries no payload.
type ProjectEvent struct {
	ProjectID uint   `json:"project_id"`
	Entity    string `json:"entity"`
	Action    string `json:"action"`
	ID        uint   `json:"id,omitempty"`
	UserID    uint   `json:"user_id,omitempty"`
}

type sseClient struct {
	projectID uint
	ch        chan ProjectEvent
}

// SSEHub manages SSE client connections and event broadcasting
type SSEHub struct {
	clients map[string]*sseClient
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub instance
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*sseClient),
	}
}

// Subscribe registers a client for the events of one project.
func (h *SSEHub) Subscribe(clientID string, projectID uint) <-chan ProjectEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ProjectEvent, 100)
	h.clients[clientID] = &sseClient{projectID: projectID, ch: ch}
	return ch
}

// Unsubscribe removes a client from the hub
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.ch)
		delete(h.clients, clientID)
	}
}

// Publish delivers an event to every client watching its project.
func (h *SSEHub) Publish(event ProjectEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.projectID != event.ProjectID {
			continue
		}
		// slow clients miss events rather than block writers
		select {
		case c.ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the global SSE hub singleton
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}

// publish is a nil-safe helper used by the project services.
func publish(hub *SSEHub, projectID uint, entity, action string, id, userID uint) {
	if hub == nil {
		return
	}
	hub.Publish(ProjectEvent{ProjectID: projectID, Entity: entity, Action: action, ID: id, UserID: userID})
	eventsPublished.WithLabelValues(entity, action).Inc()
}
