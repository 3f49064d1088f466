package models

import (
	"time"
)

// Project is a planned product idea moving through the six-step wizard.
type Project struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	OwnerID               uint       `gorm:"index;not null" json:"owner_id"`
	Name                  string     `gorm:"size:200" json:"name"`
	Description           string     `gorm:"type:text" json:"description"`
	Category              string     `gorm:"size:100" json:"category"`
	Platform              string     `gorm:"size:100" json:"platform"`
	TechStack             string     `gorm:"size:1000" json:"tech_stack"`
	Status                string     `gorm:"size:20;index;default:draft" json:"status"`
	CurrentStep           int        `gorm:"default:1" json:"current_step"`
	LastEditedStep        int        `gorm:"default:1" json:"last_edited_step"`
	TotalSteps            int        `gorm:"default:6" json:"total_steps"`
	QuestionsGenerated    bool       `gorm:"default:false" json:"questions_generated"`
	QuestionsAnswered     bool       `gorm:"default:false" json:"questions_answered"`
	CanProceedFromContext bool       `gorm:"default:false" json:"can_proceed_from_context"`
	PromptsGenerated      bool       `gorm:"default:false" json:"prompts_generated"`
	AIPrompt              string     `gorm:"column:ai_prompt;type:text" json:"ai_prompt"`
	Summary               string     `gorm:"type:text" json:"summary"`
	LastDraftSave         *time.Time `json:"last_draft_save"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
