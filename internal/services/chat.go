package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	maxChatMessageLength = 4000
	defaultChatLimit     = 100
	maxChatLimit         = 500
)

// ChatService stores the per-project chat log.
type ChatService struct {
	db  *gorm.DB
	hub *SSEHub
}

func NewChatService(db *gorm.DB, hub *SSEHub) *ChatService {
	return &ChatService{db: db, hub: hub}
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Send appends a message. Any member may chat, viewers included.
func (s *ChatService) Send(actor Actor, projectID uint, req *SendMessageRequest) (*models.ChatMessage, error) {
	project, _, err := authorize(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, response.NewBadRequest("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxChatMessageLength {
		return nil, response.NewBadRequest("message is too long")
	}

	var user models.User
	if err := s.db.First(&user, actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUnauthenticated
		}
		return nil, err
	}

	msg := models.ChatMessage{
		ProjectID:   project.ID,
		UserID:      user.ID,
		Content:     content,
		DisplayName: user.DisplayName(),
		Avatar:      user.Avatar,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}

	publish(s.hub, project.ID, EntityMessage, ActionCreated, msg.ID, actor.UserID)
	return &msg, nil
}

// List returns the latest limit messages, oldest first.
func (s *ChatService) List(actor Actor, projectID uint, limit int) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	_, _, ok, err := authorizeQuery(s.db, actor, projectID)
	if err != nil || !ok {
		return messages, err
	}
	if limit <= 0 {
		limit = defaultChatLimit
	}
	if limit > maxChatLimit {
		limit = maxChatLimit
	}

	if err := s.db.Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
