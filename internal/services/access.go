package services

import (
	"errors"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   string // system role: admin, user
}

func (a Actor) Authenticated() bool { return a.UserID != 0 }

// Role groups used by the project services.
var (
	editorRoles  = []string{models.RoleOwner, models.RoleAdmin, models.RoleMember}
	managerRoles = []string{models.RoleOwner, models.RoleAdmin}
)

var (
	errUnauthenticated = response.NewUnauthorized("authentication required")
	errProjectNotFound = response.NewNotFound("project not found")
)

// projectRole returns the caller's effective role on the project, or "" when
// the caller has no access. The project owner always resolves to "owner".
func projectRole(db *gorm.DB, project *models.Project, userID uint) (string, error) {
	if project.OwnerID == userID {
		return models.RoleOwner, nil
	}
	var member models.ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", project.ID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func loadProject(db *gorm.DB, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// authorize loads the project and checks that the caller holds one of the
// allowed roles. An empty allowed list accepts any membership.
func authorize(db *gorm.DB, actor Actor, projectID uint, allowed ...string) (*models.Project, string, error) {
	if !actor.Authenticated() {
		return nil, "", errUnauthenticated
	}
	project, err := loadProject(db, projectID)
	if err != nil {
		return nil, "", err
	}
	role, err := projectRole(db, project, actor.UserID)
	if err != nil {
		return nil, "", err
	}
	if role == "" {
		return nil, "", response.NewForbidden("you do not have access to this project")
	}
	if len(allowed) > 0 && !models.Contains(allowed, role) {
		return nil, "", response.NewForbidden("your role on this project does not allow this action")
	}
	return project, role, nil
}

// authorizeOwner accepts only the project's owner of record.
func authorizeOwner(db *gorm.DB, actor Actor, projectID uint) (*models.Project, error) {
	if !actor.Authenticated() {
		return nil, errUnauthenticated
	}
	project, err := loadProject(db, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can do this")
	}
	return project, nil
}

// isProjectMember reports whether userID is the owner or has a membership row.
func isProjectMember(db *gorm.DB, project *models.Project, userID uint) (bool, error) {
	role, err := projectRole(db, project, userID)
	return role != "", err
}

// VisibleProjectIDs returns every project the user owns or has joined.
func VisibleProjectIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.Project{}).
		Where("owner_id = ?", userID).
		Or("id IN (?)", db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// authorizeQuery is authorize for read paths: an anonymous caller or a missing
// project yields ok=false with no error so the caller can return an empty result.
func authorizeQuery(db *gorm.DB, actor Actor, projectID uint) (project *models.Project, role string, ok bool, err error) {
	if !actor.Authenticated() {
		return nil, "", false, nil
	}
	project, role, err = authorize(db, actor, projectID)
	if errors.Is(err, errProjectNotFound) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	return project, role, true, nil
}
