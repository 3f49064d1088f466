package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// fakeCompleter replays scripted replies. With no replies left it reports
// that no provider is configured, which makes LLMGenerator use its defaults.
type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []*CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", ErrNoLLMProvider
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingQueue keeps enqueued notifications in memory.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []*NotificationTask
	err   error
}

func (q *recordingQueue) Enqueue(task *NotificationTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func (q *recordingQueue) sent() []*NotificationTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*NotificationTask(nil), q.tasks...)
}

// serviceSuite gives each test a fresh sqlite database with four users:
// owner, admin, member and viewer on one draft project, plus an outsider.
type serviceSuite struct {
	suite.Suite

	db        *gorm.DB
	hub       *SSEHub
	completer *fakeCompleter
	generator *LLMGenerator
	queue     *recordingQueue

	owner, admin, member, viewer, outsider *models.User
	project                                *models.Project

	projects      *ProjectService
	wizard        *WizardService
	questions     *QuestionService
	features      *FeatureService
	tasks         *TaskService
	collaboration *CollaborationService
	chat          *ChatService
	dashboard     *DashboardService
}

func openTestDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:ideaforge_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, models.Migrate(db)
}

func (s *serviceSuite) SetupTest() {
	db, err := openTestDB()
	s.Require().NoError(err)
	s.db = db
	s.hub = NewSSEHub()
	s.completer = &fakeCompleter{}
	s.generator = NewLLMGenerator(s.completer)
	s.queue = &recordingQueue{}

	s.projects = NewProjectService(db, s.hub)
	s.wizard = NewWizardService(db, s.generator, s.hub)
	s.questions = NewQuestionService(db, s.generator, s.hub)
	s.features = NewFeatureService(db, s.generator, s.hub)
	s.tasks = NewTaskService(db, s.hub)
	s.collaboration = NewCollaborationService(db, s.queue, s.hub)
	s.chat = NewChatService(db, s.hub)
	s.dashboard = NewDashboardService(db)

	s.owner = s.createUser("owner")
	s.admin = s.createUser("admin")
	s.member = s.createUser("member")
	s.viewer = s.createUser("viewer")
	s.outsider = s.createUser("outsider")

	s.project, err = s.projects.Create(s.actor(s.owner), &CreateProjectRequest{})
	s.Require().NoError(err)
	s.addMember(s.admin, models.RoleAdmin)
	s.addMember(s.member, models.RoleMember)
	s.addMember(s.viewer, models.RoleViewer)
}

func (s *serviceSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *serviceSuite) createUser(name string) *models.User {
	u := &models.User{
		Username: name,
		Email:    name + "@example.com",
		Nickname: strings.ToUpper(name[:1]) + name[1:],
		Role:     "user",
		AuthType: AuthTypeLocal,
		IsActive: true,
	}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *serviceSuite) addMember(u *models.User, role string) {
	s.Require().NoError(s.db.Create(&models.ProjectMember{ProjectID: s.project.ID, UserID: u.ID, Role: role}).Error)
}

func (s *serviceSuite) actor(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func (s *serviceSuite) reloadProject() *models.Project {
	p, err := loadProject(s.db, s.project.ID)
	s.Require().NoError(err)
	return p
}

func (s *serviceSuite) createFeature(title string) *models.Feature {
	f, err := s.features.Create(s.actor(s.owner), s.project.ID, &FeatureInput{Title: title, Description: title + " description"})
	s.Require().NoError(err)
	return f
}

// requireStatus asserts that err is an AppError with the given HTTP status.
func (s *serviceSuite) requireStatus(err error, status int) {
	s.T().Helper()
	s.Require().Error(err)
	var appErr *response.AppError
	s.Require().True(errors.As(err, &appErr), "expected *response.AppError, got %T: %v", err, err)
	s.Require().Equal(status, appErr.HTTPStatus, appErr.Message)
}
