package models

import "time"

// Feature is a candidate piece of work for a project, created by hand or by the LLM.
type Feature struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ProjectID          uint      `gorm:"index;not null" json:"project_id"`
	Title              string    `gorm:"size:300;not null" json:"title"`
	Description        string    `gorm:"type:text" json:"description"`
	Priority           string    `gorm:"size:20;default:Medium" json:"priority"` // Low, Medium, High, Critical
	Effort             string    `gorm:"size:20;default:Medium" json:"effort"`   // Small, Medium, Large, XL
	Category           string    `gorm:"size:50;default:Core" json:"category"`
	AcceptanceCriteria string    `gorm:"type:text" json:"acceptance_criteria,omitempty"`
	TechnicalNotes     string    `gorm:"type:text" json:"technical_notes,omitempty"`
	AIPrompt           string    `gorm:"column:ai_prompt;type:text" json:"ai_prompt,omitempty"`
	AddedToTask        bool      `gorm:"index;default:false" json:"added_to_task"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Feature) TableName() string { return "features" }
