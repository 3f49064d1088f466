package services

import (
	"errors"
	"strings"
	"time"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// TaskService owns the Kanban board. Tasks are ordered by position inside
// each (project, status) column.
type TaskService struct {
	db  *gorm.DB
	hub *SSEHub
}

func NewTaskService(db *gorm.DB, hub *SSEHub) *TaskService {
	return &TaskService{db: db, hub: hub}
}

type PromoteFeatureRequest struct {
	AssignedTo *uint `json:"assigned_to"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=300"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Effort      string     `json:"effort"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *uint      `json:"assigned_to"`
	Notes       string     `json:"notes"`
}

type UpdateTaskRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority"`
	Effort       *string    `json:"effort"`
	Category     *string    `json:"category"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// MoveTaskRequest places a task at Index of the Status column.
// A negative or too large index appends.
type MoveTaskRequest struct {
	Status string `json:"status" binding:"required"`
	Index  int    `json:"index"`
}

type AssignTaskRequest struct {
	AssignedTo *uint `json:"assigned_to"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

var errNotMember = response.NewBadRequest("assignee must be a member of the project")

func (s *TaskService) checkAssignee(db *gorm.DB, project *models.Project, assignee *uint) error {
	if assignee == nil {
		return nil
	}
	ok, err := isProjectMember(db, project, *assignee)
	if err != nil {
		return err
	}
	if !ok {
		return errNotMember
	}
	return nil
}

func loadTask(db *gorm.DB, projectID, taskID uint) (*models.Task, error) {
	var task models.Task
	err := db.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("task not found")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// nextPosition is one past the highest position in the project, starting at 1.
func nextPosition(tx *gorm.DB, projectID uint) (int, error) {
	var max int
	err := tx.Model(&models.Task{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	return max + 1, err
}

// PromoteFeature turns a feature into a todo task. A feature can be promoted once.
func (s *TaskService) PromoteFeature(actor Actor, projectID, featureID uint, req *PromoteFeatureRequest) (*models.Task, error) {
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return nil, err
	}
	feature, err := loadFeature(s.db, project.ID, featureID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(s.db, project, req.AssignedTo); err != nil {
		return nil, err
	}

	var task models.Task
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Feature{}).
			Where("id = ? AND added_to_task = ?", feature.ID, false).
			Update("added_to_task", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewBadRequest("feature is already on the task board")
		}

		position, err := nextPosition(tx, project.ID)
		if err != nil {
			return err
		}
		featureRef := feature.ID
		task = models.Task{
			ProjectID:   project.ID,
			FeatureID:   &featureRef,
			Title:       feature.Title,
			Description: feature.Description,
			Status:      models.TaskStatusTodo,
			Position:    position,
			Priority:    feature.Priority,
			Effort:      feature.Effort,
			Category:    feature.Category,
			AssignedTo:  req.AssignedTo,
			CreatedBy:   actor.UserID,
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Module("task").Info().Uint("project_id", project.ID).Uint("feature_id", feature.ID).Uint("task_id", task.ID).Msg("feature promoted")
	publish(s.hub, project.ID, EntityTask, ActionCreated, task.ID, actor.UserID)
	publish(s.hub, project.ID, EntityFeature, ActionUpdated, feature.ID, actor.UserID)
	return &task, nil
}

// DemoteFeature deletes every task created from the feature and clears its flag.
func (s *TaskService) DemoteFeature(actor Actor, projectID, featureID uint) (int64, error) {
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return 0, err
	}
	feature, err := loadFeature(s.db, project.ID, featureID)
	if err != nil {
		return 0, err
	}

	var removed int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("project_id = ? AND feature_id = ?", project.ID, feature.ID).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Model(&models.Feature{}).Where("id = ?", feature.ID).Update("added_to_task", false).Error
	})
	if err != nil {
		return 0, err
	}

	publish(s.hub, project.ID, EntityTask, ActionDeleted, 0, actor.UserID)
	publish(s.hub, project.ID, EntityFeature, ActionUpdated, feature.ID, actor.UserID)
	return removed, nil
}

// MoveTask places the task at req.Index of the destination column and
// renumbers that column 0..n-1 in one transaction. The source column keeps
// its positions. It returns the destination column in order.
func (s *TaskService) MoveTask(actor Actor, projectID, taskID uint, req *MoveTaskRequest) ([]models.Task, error) {
	if !models.Contains(models.TaskStatuses, req.Status) {
		return nil, response.NewBadRequest("invalid task status")
	}
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return nil, err
	}

	var column []models.Task
	moved := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		task, err := loadTask(tx, project.ID, taskID)
		if err != nil {
			return err
		}

		var others []models.Task
		if err := tx.Where("project_id = ? AND status = ? AND id <> ?", project.ID, req.Status, task.ID).
			Order("position ASC, id ASC").
			Find(&others).Error; err != nil {
			return err
		}

		index := req.Index
		if index < 0 || index > len(others) {
			index = len(others)
		}

		if task.Status == req.Status {
			current, err := currentIndex(tx, task)
			if err != nil {
				return err
			}
			if current == index {
				column, err = columnOf(tx, project.ID, req.Status)
				return err
			}
		}

		column = make([]models.Task, 0, len(others)+1)
		column = append(column, others[:index]...)
		column = append(column, *task)
		column = append(column, others[index:]...)

		for i := range column {
			t := &column[i]
			if t.Position == i && t.Status == req.Status {
				continue
			}
			if err := tx.Model(&models.Task{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
				"status":   req.Status,
				"position": i,
			}).Error; err != nil {
				return err
			}
			t.Status = req.Status
			t.Position = i
		}
		moved = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if moved {
		publish(s.hub, project.ID, EntityTask, ActionMoved, taskID, actor.UserID)
	}
	return column, nil
}

// currentIndex is the task's index within its own column.
func currentIndex(tx *gorm.DB, task *models.Task) (int, error) {
	var before int64
	err := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ? AND id <> ?", task.ProjectID, task.Status, task.ID).
		Where("position < ? OR (position = ? AND id < ?)", task.Position, task.Position, task.ID).
		Count(&before).Error
	if err != nil {
		return 0, err
	}
	return int(before), nil
}

func columnOf(db *gorm.DB, projectID uint, status string) ([]models.Task, error) {
	column := []models.Task{}
	err := db.Where("project_id = ? AND status = ?", projectID, status).
		Order("position ASC, id ASC").
		Find(&column).Error
	return column, err
}

// ListTasks returns every task of the project grouped by column order.
func (s *TaskService) ListTasks(actor Actor, projectID uint) ([]models.Task, error) {
	tasks := []models.Task{}
	_, _, ok, err := authorizeQuery(s.db, actor, projectID)
	if err != nil || !ok {
		return tasks, err
	}
	err = s.db.Where("project_id = ?", projectID).Order("status ASC, position ASC, id ASC").Find(&tasks).Error
	return tasks, err
}

// CreateTask adds a manual task at the end of the board.
func (s *TaskService) CreateTask(actor Actor, projectID uint, req *CreateTaskRequest) (*models.Task, error) {
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, response.NewBadRequest("task title is required")
	}
	status, err := enumOrDefault(req.Status, models.TaskStatuses, models.TaskStatusTodo, "status")
	if err != nil {
		return nil, err
	}
	priority, err := enumOrDefault(req.Priority, models.Priorities, models.DefaultPriority, "priority")
	if err != nil {
		return nil, err
	}
	effort, err := enumOrDefault(req.Effort, models.Efforts, models.DefaultEffort, "effort")
	if err != nil {
		return nil, err
	}
	category, err := enumOrDefault(req.Category, models.Categories, models.DefaultCategory, "category")
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(s.db, project, req.AssignedTo); err != nil {
		return nil, err
	}

	task := models.Task{
		ProjectID:   project.ID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		Priority:    priority,
		Effort:      effort,
		Category:    category,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
		Notes:       req.Notes,
		CreatedBy:   actor.UserID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, project.ID)
		if err != nil {
			return err
		}
		task.Position = position
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}

	publish(s.hub, project.ID, EntityTask, ActionCreated, task.ID, actor.UserID)
	return &task, nil
}

// UpdateTask patches the descriptive fields of a task.
func (s *TaskService) UpdateTask(actor Actor, projectID, taskID uint, req *UpdateTaskRequest) (*models.Task, error) {
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return nil, err
	}
	task, err := loadTask(s.db, project.ID, taskID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, response.NewBadRequest("task title is required")
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	enums := []struct {
		column  string
		value   *string
		allowed []string
		def     string
	}{
		{"priority", req.Priority, models.Priorities, models.DefaultPriority},
		{"effort", req.Effort, models.Efforts, models.DefaultEffort},
		{"category", req.Category, models.Categories, models.DefaultCategory},
	}
	for _, e := range enums {
		if e.value == nil {
			continue
		}
		v, err := enumOrDefault(*e.value, e.allowed, e.def, e.column)
		if err != nil {
			return nil, err
		}
		updates[e.column] = v
	}
	if req.ClearDueDate {
		updates["due_date"] = nil
	} else if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	if len(updates) > 0 {
		if err := s.db.Model(task).Updates(updates).Error; err != nil {
			return nil, err
		}
		publish(s.hub, project.ID, EntityTask, ActionUpdated, task.ID, actor.UserID)
	}
	return loadTask(s.db, project.ID, task.ID)
}

// AssignTask sets or clears the assignee. Only owners and admins may reassign.
func (s *TaskService) AssignTask(actor Actor, projectID, taskID uint, req *AssignTaskRequest) (*models.Task, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	task, err := loadTask(s.db, project.ID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignee(s.db, project, req.AssignedTo); err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("assigned_to", req.AssignedTo).Error; err != nil {
		return nil, err
	}
	task.AssignedTo = req.AssignedTo
	publish(s.hub, project.ID, EntityTask, ActionUpdated, task.ID, actor.UserID)
	return task, nil
}

// UpdateNotes is open to every project member, viewers included.
func (s *TaskService) UpdateNotes(actor Actor, projectID, taskID uint, req *UpdateNotesRequest) (*models.Task, error) {
	project, _, err := authorize(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	task, err := loadTask(s.db, project.ID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Task{}).Where("id = ?", task.ID).Update("notes", req.Notes).Error; err != nil {
		return nil, err
	}
	task.Notes = req.Notes
	publish(s.hub, project.ID, EntityTask, ActionUpdated, task.ID, actor.UserID)
	return task, nil
}

// DeleteTask removes a task; a feature left without tasks is un-promoted.
func (s *TaskService) DeleteTask(actor Actor, projectID, taskID uint) error {
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return err
	}
	task, err := loadTask(s.db, project.ID, taskID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(task).Error; err != nil {
			return err
		}
		if task.FeatureID == nil {
			return nil
		}
		var remaining int64
		if err := tx.Model(&models.Task{}).Where("feature_id = ?", *task.FeatureID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		return tx.Model(&models.Feature{}).Where("id = ?", *task.FeatureID).Update("added_to_task", false).Error
	})
	if err != nil {
		return err
	}

	publish(s.hub, project.ID, EntityTask, ActionDeleted, task.ID, actor.UserID)
	if task.FeatureID != nil {
		publish(s.hub, project.ID, EntityFeature, ActionUpdated, *task.FeatureID, actor.UserID)
	}
	return nil
}
