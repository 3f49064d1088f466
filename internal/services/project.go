package services

import (
	"strings"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db  *gorm.DB
	hub *SSEHub
}

func NewProjectService(db *gorm.DB, hub *SSEHub) *ProjectService {
	return &ProjectService{db: db, hub: hub}
}

type ProjectListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Name     string `form:"name"`
	Status   string `form:"status"`
}

// ProjectWithRole is a project as seen by one user.
type ProjectWithRole struct {
	models.Project
	Role string `json:"role"`
}

type ProjectListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []ProjectWithRole `json:"items"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"max=200"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"max=100"`
	Platform    string `json:"platform" binding:"max=100"`
	TechStack   string `json:"tech_stack" binding:"max=1000"`
}

// Create starts a new draft project owned by the caller at wizard step 1.
func (s *ProjectService) Create(actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	if !actor.Authenticated() {
		return nil, errUnauthenticated
	}

	project := models.Project{
		OwnerID:        actor.UserID,
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Category:       strings.TrimSpace(req.Category),
		Platform:       strings.TrimSpace(req.Platform),
		TechStack:      strings.TrimSpace(req.TechStack),
		Status:         models.ProjectStatusDraft,
		CurrentStep:    models.StepName,
		LastEditedStep: models.StepName,
		TotalSteps:     models.TotalSteps,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}

	logger.Module("project").Info().Uint("project_id", project.ID).Uint("owner_id", actor.UserID).Msg("project created")
	return &project, nil
}

// Get returns the project with the caller's role on it.
func (s *ProjectService) Get(actor Actor, projectID uint) (*ProjectWithRole, error) {
	project, role, err := authorize(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectWithRole{Project: *project, Role: role}, nil
}

// List returns the caller's visible projects, newest first.
func (s *ProjectService) List(actor Actor, req *ProjectListRequest) (*ProjectListResponse, error) {
	if !actor.Authenticated() {
		return nil, errUnauthenticated
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	ids, err := VisibleProjectIDs(s.db, actor.UserID)
	if err != nil {
		return nil, err
	}
	resp := &ProjectListResponse{Page: req.Page, PageSize: req.PageSize, Items: []ProjectWithRole{}}
	if len(ids) == 0 {
		return resp, nil
	}

	query := s.db.Model(&models.Project{}).Where("id IN ?", ids)
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("updated_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	roles, err := projectRolesOf(s.db, actor.UserID)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		role := roles[p.ID]
		if p.OwnerID == actor.UserID {
			role = models.RoleOwner
		}
		resp.Items = append(resp.Items, ProjectWithRole{Project: p, Role: role})
	}
	return resp, nil
}

func projectRolesOf(db *gorm.DB, userID uint) (map[uint]string, error) {
	var rows []models.ProjectMember
	if err := db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make(map[uint]string, len(rows))
	for _, r := range rows {
		roles[r.ProjectID] = r.Role
	}
	return roles, nil
}

// UpdateStatus lets the owner archive, complete or reopen a project.
func (s *ProjectService) UpdateStatus(actor Actor, projectID uint, status string) (*models.Project, error) {
	if !models.Contains(models.ProjectStatuses, status) {
		return nil, response.NewBadRequest("invalid project status")
	}
	project, err := authorizeOwner(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(project).Update("status", status).Error; err != nil {
		return nil, err
	}
	project.Status = status
	publish(s.hub, project.ID, EntityProject, ActionUpdated, project.ID, actor.UserID)
	return project, nil
}

// Delete removes the project and everything that belongs to it in one transaction.
func (s *ProjectService) Delete(actor Actor, projectID uint) error {
	project, err := authorizeOwner(s.db, actor, projectID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Task{},
			&models.Feature{},
			&models.ProjectAnswer{},
			&models.ProjectQuestion{},
			&models.ChatMessage{},
			&models.ProjectMember{},
		} {
			if err := tx.Where("project_id = ?", project.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		return err
	}

	logger.Module("project").Info().Uint("project_id", project.ID).Msg("project deleted")
	publish(s.hub, project.ID, EntityProject, ActionDeleted, project.ID, actor.UserID)
	return nil
}
