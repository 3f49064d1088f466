package models

import "time"

// AIUsageLog records one generation call: which operation, which provider, how it went.
type AIUsageLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   *uint     `gorm:"index" json:"project_id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Operation   string    `gorm:"size:50;index" json:"operation"` // questions, features, project_prompt, feature_prompt, summary
	LLMConfigID uint      `json:"llm_config_id"`
	Provider    string    `gorm:"size:50" json:"provider"`
	Model       string    `gorm:"size:100" json:"model"`
	PromptChars int       `json:"prompt_chars"`
	ReplyChars  int       `json:"reply_chars"`
	LatencyMs   int64     `json:"latency_ms"`
	Success     bool      `json:"success"`
	Error       string    `gorm:"size:500" json:"error,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (AIUsageLog) TableName() string { return "ai_usage_logs" }
