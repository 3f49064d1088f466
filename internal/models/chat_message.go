package models

import "time"

// ChatMessage is one entry of a project's chat log. DisplayName and Avatar are
// copied from the author at send time.
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"index:idx_chat_project_time,priority:1;not null" json:"project_id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	Avatar      string    `gorm:"size:500" json:"avatar"`
	CreatedAt   time.Time `gorm:"index:idx_chat_project_time,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
