package services

import (
	"github.com/huangang/ideaforge/backend/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// CountItem is one bucket of a group-by rollup.
type CountItem struct {
	Key   string `gorm:"column:group_key" json:"key"`
	Count int64  `json:"count"`
}

type DashboardStats struct {
	TotalProjects    int64       `json:"total_projects"`
	ProjectsByStatus []CountItem `json:"projects_by_status"`
	TotalTasks       int64       `json:"total_tasks"`
	TasksByStatus    []CountItem `json:"tasks_by_status"`
	TasksByPriority  []CountItem `json:"tasks_by_priority"`
	TotalFeatures    int64       `json:"total_features"`
	FeaturesByCat    []CountItem `json:"features_by_category"`
	FeaturesByPrio   []CountItem `json:"features_by_priority"`
	PromotedFeatures int64       `json:"promoted_features"`
	CompletionRate   float64     `json:"completion_rate"`
}

type RecentProject struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`
	UpdatedAt   string `json:"updated_at"`
}

type DashboardResponse struct {
	Stats          DashboardStats  `json:"stats"`
	RecentProjects []RecentProject `json:"recent_projects"`
}

// Overview aggregates over every project the user owns or has joined.
func (s *DashboardService) Overview(actor Actor) (*DashboardResponse, error) {
	resp := &DashboardResponse{RecentProjects: []RecentProject{}}
	if !actor.Authenticated() {
		return resp, nil
	}
	ids, err := VisibleProjectIDs(s.db, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		resp.Stats = emptyStats()
		return resp, nil
	}

	stats, err := s.rollup(ids)
	if err != nil {
		return nil, err
	}
	resp.Stats = *stats

	var recent []models.Project
	if err := s.db.Where("id IN ?", ids).Order("updated_at DESC").Limit(5).Find(&recent).Error; err != nil {
		return nil, err
	}
	for _, p := range recent {
		resp.RecentProjects = append(resp.RecentProjects, RecentProject{
			ID:          p.ID,
			Name:        p.Name,
			Status:      p.Status,
			CurrentStep: p.CurrentStep,
			UpdatedAt:   p.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return resp, nil
}

// ProjectStats is the same rollup for a single project.
func (s *DashboardService) ProjectStats(actor Actor, projectID uint) (*DashboardStats, error) {
	project, _, err := authorize(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	return s.rollup([]uint{project.ID})
}

func emptyStats() DashboardStats {
	return DashboardStats{
		ProjectsByStatus: []CountItem{},
		TasksByStatus:    []CountItem{},
		TasksByPriority:  []CountItem{},
		FeaturesByCat:    []CountItem{},
		FeaturesByPrio:   []CountItem{},
	}
}

func (s *DashboardService) rollup(ids []uint) (*DashboardStats, error) {
	stats := emptyStats()

	groups := []struct {
		model  interface{}
		column string
		key    string
		dest   *[]CountItem
		total  *int64
	}{
		{&models.Project{}, "status", "id", &stats.ProjectsByStatus, &stats.TotalProjects},
		{&models.Task{}, "status", "project_id", &stats.TasksByStatus, &stats.TotalTasks},
		{&models.Task{}, "priority", "project_id", &stats.TasksByPriority, nil},
		{&models.Feature{}, "category", "project_id", &stats.FeaturesByCat, &stats.TotalFeatures},
		{&models.Feature{}, "priority", "project_id", &stats.FeaturesByPrio, nil},
	}
	for _, g := range groups {
		if err := s.db.Model(g.model).
			Select(g.column + " AS group_key, COUNT(*) AS count").
			Where(g.key+" IN ?", ids).
			Group(g.column).
			Order("count DESC, group_key ASC").
			Scan(g.dest).Error; err != nil {
			return nil, err
		}
		if g.total != nil {
			for _, item := range *g.dest {
				*g.total += item.Count
			}
		}
	}

	if err := s.db.Model(&models.Feature{}).
		Where("project_id IN ? AND added_to_task = ?", ids, true).
		Count(&stats.PromotedFeatures).Error; err != nil {
		return nil, err
	}

	if stats.TotalTasks > 0 {
		for _, item := range stats.TasksByStatus {
			if item.Key == models.TaskStatusCompleted {
				stats.CompletionRate = float64(item.Count) / float64(stats.TotalTasks)
			}
		}
	}
	return &stats, nil
}
