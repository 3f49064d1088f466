package models

import "time"

// ProjectQuestion is a clarifying question generated for a project.
type ProjectQuestion struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"index;not null" json:"project_id"`
	Section      string    `gorm:"size:100" json:"section"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	InputType    string    `gorm:"size:20;default:textarea" json:"input_type"` // text, textarea, select
	Options      string    `gorm:"type:text" json:"options,omitempty"`         // JSON array for select inputs
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
	Required     bool      `gorm:"default:false" json:"required"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProjectAnswer holds the free-text answer to one question; at most one per question.
type ProjectAnswer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"uniqueIndex:idx_answer_project_question;not null" json:"project_id"`
	QuestionID uint      `gorm:"uniqueIndex:idx_answer_project_question;not null" json:"question_id"`
	Answer     string    `gorm:"type:text" json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ProjectQuestion) TableName() string { return "project_questions" }
func (ProjectAnswer) TableName() string   { return "project_answers" }
