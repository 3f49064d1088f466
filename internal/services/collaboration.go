package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// CollaborationService manages project membership. The owner is implicit and
// cannot be added, changed or removed through it.
type CollaborationService struct {
	db    *gorm.DB
	queue TaskQueue
	hub   *SSEHub
}

func NewCollaborationService(db *gorm.DB, queue TaskQueue, hub *SSEHub) *CollaborationService {
	return &CollaborationService{db: db, queue: queue, hub: hub}
}

// memberRoles are the roles a membership row may hold.
var memberRoles = []string{models.RoleAdmin, models.RoleMember, models.RoleViewer}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// MemberView is one row of the member list.
type MemberView struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	Nickname string    `json:"nickname"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func checkMemberRole(role string) error {
	if !models.Contains(memberRoles, role) {
		return response.NewBadRequest("invalid role, must be one of admin, member, viewer")
	}
	return nil
}

func memberView(u *models.User, role string, joined time.Time) MemberView {
	return MemberView{
		UserID:   u.ID,
		Username: u.Username,
		Nickname: u.Nickname,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Role:     role,
		JoinedAt: joined,
	}
}

// ListMembers returns the owner first, then members in join order.
func (s *CollaborationService) ListMembers(actor Actor, projectID uint) ([]MemberView, error) {
	members := []MemberView{}
	project, _, ok, err := authorizeQuery(s.db, actor, projectID)
	if err != nil || !ok {
		return members, err
	}

	var owner models.User
	if err := s.db.First(&owner, project.OwnerID).Error; err == nil {
		members = append(members, memberView(&owner, models.RoleOwner, project.CreatedAt))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var rows []models.ProjectMember
	if err := s.db.Preload("User").
		Where("project_id = ?", project.ID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.User == nil {
			continue
		}
		members = append(members, memberView(row.User, row.Role, row.CreatedAt))
	}
	return members, nil
}

// AddMemberByEmail adds an existing user to the project.
func (s *CollaborationService) AddMemberByEmail(actor Actor, projectID uint, req *AddMemberRequest) (*MemberView, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	if err := checkMemberRole(req.Role); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, response.NewBadRequest("email is required")
	}

	var user models.User
	err = s.db.Where("LOWER(email) = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewBadRequest("no user found with this email")
	}
	if err != nil {
		return nil, err
	}
	if user.ID == project.OwnerID {
		return nil, response.NewBadRequest("the project owner is already a member")
	}

	member := models.ProjectMember{ProjectID: project.ID, UserID: user.ID, Role: req.Role}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", project.ID, user.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewBadRequest("user is already a member of this project")
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Module("collaboration").Info().Uint("project_id", project.ID).Uint("user_id", user.ID).Str("role", req.Role).Msg("member added")
	publish(s.hub, project.ID, EntityMember, ActionCreated, user.ID, actor.UserID)
	s.notify(actor, project, &user, NotifyInvitation, req.Role, "")

	view := memberView(&user, member.Role, member.CreatedAt)
	return &view, nil
}

// UpdateMemberRole changes the role of an existing member.
func (s *CollaborationService) UpdateMemberRole(actor Actor, projectID, userID uint, req *UpdateMemberRoleRequest) (*MemberView, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	if userID == project.OwnerID {
		return nil, response.NewBadRequest("the project owner's role cannot be changed")
	}
	if err := checkMemberRole(req.Role); err != nil {
		return nil, err
	}

	member, err := s.loadMember(project.ID, userID)
	if err != nil {
		return nil, err
	}
	previous := member.Role
	if previous == req.Role {
		view := memberView(member.User, member.Role, member.CreatedAt)
		return &view, nil
	}
	if err := s.db.Model(&models.ProjectMember{}).Where("id = ?", member.ID).Update("role", req.Role).Error; err != nil {
		return nil, err
	}
	member.Role = req.Role

	publish(s.hub, project.ID, EntityMember, ActionUpdated, userID, actor.UserID)
	s.notify(actor, project, member.User, NotifyRoleChanged, req.Role, previous)

	view := memberView(member.User, member.Role, member.CreatedAt)
	return &view, nil
}

// RemoveMember deletes the membership row and unassigns the user's tasks in
// the project.
func (s *CollaborationService) RemoveMember(actor Actor, projectID, userID uint) error {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return err
	}
	if userID == project.OwnerID {
		return response.NewBadRequest("the project owner cannot be removed")
	}

	member, err := s.loadMember(project.ID, userID)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(member).Error; err != nil {
			return err
		}
		return tx.Model(&models.Task{}).
			Where("project_id = ? AND assigned_to = ?", project.ID, userID).
			Update("assigned_to", nil).Error
	})
	if err != nil {
		return err
	}

	publish(s.hub, project.ID, EntityMember, ActionDeleted, userID, actor.UserID)
	s.notify(actor, project, member.User, NotifyRemoved, "", member.Role)
	return nil
}

func (s *CollaborationService) loadMember(projectID, userID uint) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.Preload("User").Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewBadRequest("user is not a member of this project")
	}
	if err != nil {
		return nil, err
	}
	if member.User == nil {
		member.User = &models.User{ID: userID}
	}
	return &member, nil
}

// notify enqueues a best-effort notification. Failures are logged only.
func (s *CollaborationService) notify(actor Actor, project *models.Project, recipient *models.User, kind, role, previous string) {
	if s.queue == nil || recipient == nil {
		return
	}
	actorName := "Someone"
	var actorUser models.User
	if err := s.db.First(&actorUser, actor.UserID).Error; err == nil {
		actorName = actorUser.DisplayName()
	}

	task := &NotificationTask{
		Type:           kind,
		ProjectID:      project.ID,
		ProjectName:    project.Name,
		ActorName:      actorName,
		RecipientID:    recipient.ID,
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.DisplayName(),
		Role:           role,
		PreviousRole:   previous,
	}
	if err := s.queue.Enqueue(task); err != nil {
		uid := actor.UserID
		LogWarning("Collaboration", "Notify", fmt.Sprintf("failed to enqueue %s notification", kind), &uid, "", "", map[string]interface{}{
			"project_id": project.ID,
			"recipient":  recipient.ID,
			"error":      err.Error(),
		})
	}
}
