package models

import "time"

// Task is a Kanban card. Cards are ordered by Position within (ProjectID, Status).
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"index:idx_task_column,priority:1;not null" json:"project_id"`
	FeatureID   *uint      `gorm:"index" json:"feature_id"`
	Title       string     `gorm:"size:300;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:20;index:idx_task_column,priority:2;default:todo" json:"status"`
	Position    int        `gorm:"index:idx_task_column,priority:3;default:0" json:"position"`
	Priority    string     `gorm:"size:20;default:Medium" json:"priority"`
	Effort      string     `gorm:"size:20;default:Medium" json:"effort"`
	Category    string     `gorm:"size:50;default:Core" json:"category"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *uint      `gorm:"index" json:"assigned_to"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedBy   uint       `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
