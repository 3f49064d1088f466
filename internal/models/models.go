package models

// Project statuses
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Wizard steps, in order.
const (
	StepName = iota + 1
	StepDescription
	StepQuestions
	StepFeatures
	StepPrompts
	StepSummary

	TotalSteps = StepSummary
)

// Project roles. The owner role belongs only to Project.OwnerID and is never
// stored on a ProjectMember row; members hold admin, member or viewer.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Task statuses (Kanban columns).
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusBlocked    = "blocked"
)

var (
	ProjectStatuses = []string{ProjectStatusDraft, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived}
	Roles           = []string{RoleOwner, RoleAdmin, RoleMember, RoleViewer}
	TaskStatuses    = []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked}

	Priorities = []string{"Low", "Medium", "High", "Critical"}
	Efforts    = []string{"Small", "Medium", "Large", "XL"}
	Categories = []string{"Core", "Enhancement", "Integration", "UI/UX", "Performance", "Security"}
)

const (
	DefaultPriority = "Medium"
	DefaultEffort   = "Medium"
	DefaultCategory = "Core"
)

// Contains reports whether v is one of values.
func Contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
