package services

import (
	"errors"
	"net/http"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/stretchr/testify/suite"
)

type CollaborationSuite struct {
	serviceSuite
}

func TestCollaborationSuite(t *testing.T) {
	suite.Run(t, new(CollaborationSuite))
}

func (s *CollaborationSuite) memberCount() int64 {
	var count int64
	s.db.Model(&models.ProjectMember{}).Where("project_id = ?", s.project.ID).Count(&count)
	return count
}

func (s *CollaborationSuite) TestAddByEmail() {
	view, err := s.collaboration.AddMemberByEmail(s.actor(s.admin), s.project.ID, &AddMemberRequest{Email: " OUTSIDER@Example.com ", Role: models.RoleMember})
	s.Require().NoError(err)
	s.Equal(s.outsider.ID, view.UserID)
	s.Equal(models.RoleMember, view.Role)

	role, err := projectRole(s.db, s.project, s.outsider.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleMember, role)

	sent := s.queue.sent()
	s.Require().Len(sent, 1)
	s.Equal(NotifyInvitation, sent[0].Type)
	s.Equal("outsider@example.com", sent[0].RecipientEmail)
	s.Equal("Admin", sent[0].ActorName)
}

func (s *CollaborationSuite) TestAddUnknownEmail() {
	before := s.memberCount()
	_, err := s.collaboration.AddMemberByEmail(s.actor(s.owner), s.project.ID, &AddMemberRequest{Email: "nobody@example.com", Role: models.RoleMember})
	s.requireStatus(err, http.StatusBadRequest)
	s.Equal(before, s.memberCount())
	s.Empty(s.queue.sent())
}

func (s *CollaborationSuite) TestAddRejections() {
	_, err := s.collaboration.AddMemberByEmail(s.actor(s.owner), s.project.ID, &AddMemberRequest{Email: s.owner.Email, Role: models.RoleAdmin})
	s.requireStatus(err, http.StatusBadRequest)

	_, err = s.collaboration.AddMemberByEmail(s.actor(s.owner), s.project.ID, &AddMemberRequest{Email: s.member.Email, Role: models.RoleAdmin})
	s.requireStatus(err, http.StatusBadRequest)

	_, err = s.collaboration.AddMemberByEmail(s.actor(s.owner), s.project.ID, &AddMemberRequest{Email: s.outsider.Email, Role: models.RoleOwner})
	s.requireStatus(err, http.StatusBadRequest)

	_, err = s.collaboration.AddMemberByEmail(s.actor(s.member), s.project.ID, &AddMemberRequest{Email: s.outsider.Email, Role: models.RoleViewer})
	s.requireStatus(err, http.StatusForbidden)
}

func (s *CollaborationSuite) TestOwnerIsImmutable() {
	_, err := s.collaboration.UpdateMemberRole(s.actor(s.admin), s.project.ID, s.owner.ID, &UpdateMemberRoleRequest{Role: models.RoleViewer})
	s.requireStatus(err, http.StatusBadRequest)

	err = s.collaboration.RemoveMember(s.actor(s.owner), s.project.ID, s.owner.ID)
	s.requireStatus(err, http.StatusBadRequest)

	role, err := projectRole(s.db, s.project, s.owner.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleOwner, role)
}

func (s *CollaborationSuite) TestUpdateRole() {
	view, err := s.collaboration.UpdateMemberRole(s.actor(s.owner), s.project.ID, s.viewer.ID, &UpdateMemberRoleRequest{Role: models.RoleMember})
	s.Require().NoError(err)
	s.Equal(models.RoleMember, view.Role)

	sent := s.queue.sent()
	s.Require().Len(sent, 1)
	s.Equal(NotifyRoleChanged, sent[0].Type)
	s.Equal(models.RoleViewer, sent[0].PreviousRole)

	_, err = s.collaboration.UpdateMemberRole(s.actor(s.owner), s.project.ID, s.viewer.ID, &UpdateMemberRoleRequest{Role: "superuser"})
	s.requireStatus(err, http.StatusBadRequest)

	_, err = s.collaboration.UpdateMemberRole(s.actor(s.owner), s.project.ID, s.outsider.ID, &UpdateMemberRoleRequest{Role: models.RoleMember})
	s.requireStatus(err, http.StatusBadRequest)
}

func (s *CollaborationSuite) TestRemoveMember() {
	s.Require().NoError(s.collaboration.RemoveMember(s.actor(s.admin), s.project.ID, s.member.ID))

	ok, err := isProjectMember(s.db, s.project, s.member.ID)
	s.Require().NoError(err)
	s.False(ok)

	sent := s.queue.sent()
	s.Require().Len(sent, 1)
	s.Equal(NotifyRemoved, sent[0].Type)
}

func (s *CollaborationSuite) TestRemoveMemberUnassignsTasks() {
	memberID := s.member.ID
	f := s.createFeature("Billing")
	task, err := s.tasks.PromoteFeature(s.actor(s.owner), s.project.ID, f.ID, &PromoteFeatureRequest{AssignedTo: &memberID})
	s.Require().NoError(err)
	adminID := s.admin.ID
	other, err := s.tasks.CreateTask(s.actor(s.owner), s.project.ID, &CreateTaskRequest{Title: "Docs", AssignedTo: &adminID})
	s.Require().NoError(err)

	s.Require().NoError(s.collaboration.RemoveMember(s.actor(s.owner), s.project.ID, s.member.ID))

	var reloaded models.Task
	s.Require().NoError(s.db.First(&reloaded, task.ID).Error)
	s.Nil(reloaded.AssignedTo)

	s.Require().NoError(s.db.First(&reloaded, other.ID).Error)
	s.Require().NotNil(reloaded.AssignedTo)
	s.Equal(s.admin.ID, *reloaded.AssignedTo)
}

func (s *CollaborationSuite) TestEnqueueFailureIsSwallowed() {
	s.queue.err = errors.New("redis down")
	_, err := s.collaboration.AddMemberByEmail(s.actor(s.owner), s.project.ID, &AddMemberRequest{Email: s.outsider.Email, Role: models.RoleViewer})
	s.Require().NoError(err)

	ok, err := isProjectMember(s.db, s.project, s.outsider.ID)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *CollaborationSuite) TestListMembersOwnerFirst() {
	members, err := s.collaboration.ListMembers(s.actor(s.viewer), s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(members, 4)
	s.Equal(s.owner.ID, members[0].UserID)
	s.Equal(models.RoleOwner, members[0].Role)

	members, err = s.collaboration.ListMembers(s.actor(s.owner), 9999)
	s.Require().NoError(err)
	s.Empty(members)
}
