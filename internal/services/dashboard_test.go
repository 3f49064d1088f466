package services

import (
	"net/http"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/stretchr/testify/suite"
)

type DashboardSuite struct {
	serviceSuite
}

func TestDashboardSuite(t *testing.T) {
	suite.Run(t, new(DashboardSuite))
}

func countOf(items []CountItem, key string) int64 {
	for _, item := range items {
		if item.Key == key {
			return item.Count
		}
	}
	return 0
}

func (s *DashboardSuite) TestOverviewCountsVisibleProjects() {
	a := s.createFeature("A")
	s.createFeature("B")
	task, err := s.tasks.PromoteFeature(s.actor(s.owner), s.project.ID, a.ID, &PromoteFeatureRequest{})
	s.Require().NoError(err)
	_, err = s.tasks.MoveTask(s.actor(s.owner), s.project.ID, task.ID, &MoveTaskRequest{Status: models.TaskStatusCompleted})
	s.Require().NoError(err)

	hidden, err := s.projects.Create(s.actor(s.outsider), &CreateProjectRequest{Name: "Hidden"})
	s.Require().NoError(err)
	_, err = s.features.Create(s.actor(s.outsider), hidden.ID, &FeatureInput{Title: "Hidden feature"})
	s.Require().NoError(err)

	resp, err := s.dashboard.Overview(s.actor(s.member))
	s.Require().NoError(err)
	s.Equal(int64(1), resp.Stats.TotalProjects)
	s.Equal(int64(1), countOf(resp.Stats.ProjectsByStatus, models.ProjectStatusDraft))
	s.Equal(int64(2), resp.Stats.TotalFeatures)
	s.Equal(int64(2), countOf(resp.Stats.FeaturesByCat, models.DefaultCategory))
	s.Equal(int64(1), resp.Stats.PromotedFeatures)
	s.Equal(int64(1), resp.Stats.TotalTasks)
	s.Equal(int64(1), countOf(resp.Stats.TasksByStatus, models.TaskStatusCompleted))
	s.InDelta(1.0, resp.Stats.CompletionRate, 0.0001)
	s.Require().Len(resp.RecentProjects, 1)
	s.Equal(s.project.ID, resp.RecentProjects[0].ID)
}

func (s *DashboardSuite) TestOverviewWithoutProjects() {
	resp, err := s.dashboard.Overview(s.actor(s.outsider))
	s.Require().NoError(err)
	s.Zero(resp.Stats.TotalProjects)
	s.Empty(resp.RecentProjects)
	s.NotNil(resp.Stats.TasksByStatus)
}

func (s *DashboardSuite) TestProjectStats() {
	s.createFeature("A")
	stats, err := s.dashboard.ProjectStats(s.actor(s.viewer), s.project.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.TotalFeatures)

	_, err = s.dashboard.ProjectStats(s.actor(s.outsider), s.project.ID)
	s.requireStatus(err, http.StatusForbidden)
}
