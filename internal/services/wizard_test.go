package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/stretchr/testify/suite"
)

type WizardSuite struct {
	serviceSuite
}

func TestWizardSuite(t *testing.T) {
	suite.Run(t, new(WizardSuite))
}

func (s *WizardSuite) throughDescription() {
	ctx := context.Background()
	owner := s.actor(s.owner)
	_, err := s.wizard.SaveName(owner, s.project.ID, &SaveNameRequest{Name: "Acme"})
	s.Require().NoError(err)
	_, err = s.wizard.SaveDescription(ctx, owner, s.project.ID, &SaveDescriptionRequest{Description: "A widget"})
	s.Require().NoError(err)
}

func (s *WizardSuite) answerRequired() *models.Project {
	qs, err := s.questions.List(s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	var answers []AnswerInput
	for _, q := range qs {
		if q.Required {
			answers = append(answers, AnswerInput{QuestionID: q.ID, Answer: "answer to " + q.Section})
		}
	}
	p, err := s.wizard.SaveAnswers(s.actor(s.owner), s.project.ID, &SaveAnswersRequest{Answers: answers})
	s.Require().NoError(err)
	return p
}

func (s *WizardSuite) TestRoundTrip() {
	ctx := context.Background()
	owner := s.actor(s.owner)

	s.throughDescription()
	qs, err := s.questions.List(owner, s.project.ID)
	s.Require().NoError(err)
	s.Require().Len(qs, 5)

	p := s.answerRequired()
	s.Equal(models.StepFeatures, p.CurrentStep)
	s.True(p.QuestionsAnswered)

	a := s.createFeature("Feature A")
	s.createFeature("Feature B")

	task, err := s.tasks.PromoteFeature(owner, s.project.ID, a.ID, &PromoteFeatureRequest{})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Equal(1, task.Position)
	s.Require().NotNil(task.FeatureID)
	s.Equal(a.ID, *task.FeatureID)

	feature, err := loadFeature(s.db, s.project.ID, a.ID)
	s.Require().NoError(err)
	s.True(feature.AddedToTask)

	column, err := s.tasks.MoveTask(owner, s.project.ID, task.ID, &MoveTaskRequest{Status: models.TaskStatusCompleted, Index: 0})
	s.Require().NoError(err)
	s.Require().Len(column, 1)
	s.Equal(models.TaskStatusCompleted, column[0].Status)

	feature, err = loadFeature(s.db, s.project.ID, a.ID)
	s.Require().NoError(err)
	s.True(feature.AddedToTask)

	s.Require().NoError(s.tasks.DeleteTask(owner, s.project.ID, task.ID))
	feature, err = loadFeature(s.db, s.project.ID, a.ID)
	s.Require().NoError(err)
	s.False(feature.AddedToTask)

	var count int64
	s.db.Model(&models.Task{}).Where("project_id = ?", s.project.ID).Count(&count)
	s.Zero(count)

	_, err = s.wizard.CompleteFeatures(owner, s.project.ID)
	s.Require().NoError(err)
	p, err = s.wizard.GenerateProjectPrompt(ctx, owner, s.project.ID)
	s.Require().NoError(err)
	s.True(p.PromptsGenerated)
	s.NotEmpty(p.AIPrompt)
	_, err = s.wizard.CompletePrompts(owner, s.project.ID)
	s.Require().NoError(err)

	p, err = s.wizard.Finalize(ctx, owner, s.project.ID)
	s.Require().NoError(err)
	s.Equal(models.ProjectStatusActive, p.Status)
	s.Equal(models.TotalSteps, p.CurrentStep)
	s.Equal(models.TotalSteps, p.LastEditedStep)
	s.NotEmpty(p.Summary)
}

func (s *WizardSuite) TestStepsStayInBounds() {
	owner := s.actor(s.owner)

	p, err := s.wizard.PreviousStep(owner, s.project.ID)
	s.Require().NoError(err)
	s.Equal(models.StepName, p.CurrentStep)

	s.throughDescription()
	s.answerRequired()
	for i := 0; i < 4; i++ {
		_, err = s.wizard.CompleteFeatures(owner, s.project.ID)
		s.Require().NoError(err)
		p = s.reloadProject()
		s.GreaterOrEqual(p.CurrentStep, models.StepName)
		s.LessOrEqual(p.CurrentStep, models.TotalSteps)
	}
	_, err = s.wizard.CompletePrompts(owner, s.project.ID)
	s.Require().NoError(err)
	_, err = s.wizard.CompletePrompts(owner, s.project.ID)
	s.Require().NoError(err)
	s.Equal(models.TotalSteps, s.reloadProject().CurrentStep)
	s.Equal(models.TotalSteps, s.reloadProject().TotalSteps)
}

func (s *WizardSuite) TestStepLocked() {
	_, err := s.wizard.SaveDescription(context.Background(), s.actor(s.owner), s.project.ID, &SaveDescriptionRequest{Description: "too early"})
	s.requireStatus(err, http.StatusBadRequest)

	_, err = s.wizard.Finalize(context.Background(), s.actor(s.owner), s.project.ID)
	s.requireStatus(err, http.StatusBadRequest)
	s.Equal(models.StepName, s.reloadProject().CurrentStep)
}

func (s *WizardSuite) TestOwnerOnly() {
	for _, u := range []*models.User{s.admin, s.member, s.viewer, s.outsider} {
		_, err := s.wizard.SaveName(s.actor(u), s.project.ID, &SaveNameRequest{Name: "Hijack"})
		s.requireStatus(err, http.StatusForbidden)
	}
	_, err := s.wizard.SaveName(Actor{}, s.project.ID, &SaveNameRequest{Name: "Anon"})
	s.requireStatus(err, http.StatusUnauthorized)

	_, err = s.wizard.SaveName(s.actor(s.owner), 9999, &SaveNameRequest{Name: "Missing"})
	s.requireStatus(err, http.StatusNotFound)
}

func (s *WizardSuite) TestSaveNameValidation() {
	_, err := s.wizard.SaveName(s.actor(s.owner), s.project.ID, &SaveNameRequest{Name: "   "})
	s.requireStatus(err, http.StatusBadRequest)
	s.Equal(models.StepName, s.reloadProject().CurrentStep)

	p, err := s.wizard.SaveName(s.actor(s.owner), s.project.ID, &SaveNameRequest{Name: "  Acme ", Category: "SaaS"})
	s.Require().NoError(err)
	s.Equal("Acme", p.Name)
	s.Equal("SaaS", p.Category)
	s.Equal(models.StepDescription, p.CurrentStep)
	s.Equal(models.StepDescription, p.LastEditedStep)
	s.NotNil(p.LastDraftSave)
}

func (s *WizardSuite) TestMissingRequiredAnswers() {
	s.throughDescription()
	qs, err := s.questions.List(s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)

	var first models.ProjectQuestion
	for _, q := range qs {
		if q.Required {
			first = q
			break
		}
	}
	_, err = s.wizard.SaveAnswers(s.actor(s.owner), s.project.ID, &SaveAnswersRequest{
		Answers: []AnswerInput{{QuestionID: first.ID, Answer: "only one"}},
	})
	s.requireStatus(err, http.StatusBadRequest)

	p := s.reloadProject()
	s.False(p.QuestionsAnswered)
	s.Equal(models.StepQuestions, p.CurrentStep)

	answers, err := s.questions.ListAnswers(s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	s.Empty(answers, "a rejected step must not keep partial answers")
}

func (s *WizardSuite) TestStoredAnswersCountTowardsRequired() {
	s.throughDescription()
	qs, err := s.questions.List(s.actor(s.owner), s.project.ID)
	s.Require().NoError(err)
	for _, q := range qs {
		if q.Required {
			_, err := s.questions.SaveAnswer(s.actor(s.member), s.project.ID, &SaveAnswerRequest{QuestionID: q.ID, Answer: "stored"})
			s.Require().NoError(err)
		}
	}

	p, err := s.wizard.SaveAnswers(s.actor(s.owner), s.project.ID, &SaveAnswersRequest{})
	s.Require().NoError(err)
	s.True(p.QuestionsAnswered)
}

func (s *WizardSuite) TestFailedGenerationLeavesStateUnchanged() {
	_, err := s.wizard.SaveName(s.actor(s.owner), s.project.ID, &SaveNameRequest{Name: "Acme"})
	s.Require().NoError(err)

	s.completer.err = errors.New("provider unavailable")
	_, err = s.wizard.SaveDescription(context.Background(), s.actor(s.owner), s.project.ID, &SaveDescriptionRequest{Description: "A widget"})
	s.requireStatus(err, http.StatusBadGateway)

	var gen *GenerationError
	s.True(errors.As(err, &gen))

	p := s.reloadProject()
	s.Equal(models.StepDescription, p.CurrentStep)
	s.Empty(p.Description)
	s.False(p.QuestionsGenerated)

	var count int64
	s.db.Model(&models.ProjectQuestion{}).Where("project_id = ?", s.project.ID).Count(&count)
	s.Zero(count)
}

func (s *WizardSuite) TestMalformedReplyIsExternalError() {
	_, err := s.wizard.SaveName(s.actor(s.owner), s.project.ID, &SaveNameRequest{Name: "Acme"})
	s.Require().NoError(err)

	s.completer.replies = []string{"I cannot help with that."}
	_, err = s.wizard.SaveDescription(context.Background(), s.actor(s.owner), s.project.ID, &SaveDescriptionRequest{Description: "A widget"})
	s.requireStatus(err, http.StatusBadGateway)
	s.False(s.reloadProject().QuestionsGenerated)
}

func (s *WizardSuite) TestGenerateFeaturePromptRequiresPromotion() {
	ctx := context.Background()
	owner := s.actor(s.owner)
	s.throughDescription()
	s.answerRequired()
	_, err := s.wizard.CompleteFeatures(owner, s.project.ID)
	s.Require().NoError(err)

	f := s.createFeature("Search")
	_, err = s.wizard.GenerateFeaturePrompt(ctx, owner, s.project.ID, f.ID)
	s.requireStatus(err, http.StatusBadRequest)

	_, err = s.tasks.PromoteFeature(owner, s.project.ID, f.ID, &PromoteFeatureRequest{})
	s.Require().NoError(err)
	f, err = s.wizard.GenerateFeaturePrompt(ctx, owner, s.project.ID, f.ID)
	s.Require().NoError(err)
	s.NotEmpty(f.AIPrompt)
	s.True(s.reloadProject().PromptsGenerated)
}

func (s *WizardSuite) TestSaveDraftDoesNotAdvance() {
	name := "Draft name"
	stack := "Go, Postgres"
	p, err := s.wizard.SaveDraft(s.actor(s.owner), s.project.ID, &SaveDraftRequest{Name: &name, TechStack: &stack})
	s.Require().NoError(err)
	s.Equal("Draft name", p.Name)
	s.Equal("Go, Postgres", p.TechStack)
	s.Equal(models.StepName, p.CurrentStep)
	s.NotNil(p.LastDraftSave)
}

func (s *WizardSuite) TestRerunningEarlierStepKeepsProgress() {
	ctx := context.Background()
	owner := s.actor(s.owner)

	s.throughDescription()
	s.answerRequired()
	_, err := s.wizard.CompleteFeatures(owner, s.project.ID)
	s.Require().NoError(err)
	_, err = s.wizard.CompletePrompts(owner, s.project.ID)
	s.Require().NoError(err)
	p, err := s.wizard.Finalize(ctx, owner, s.project.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.TotalSteps, p.CurrentStep)

	p, err = s.wizard.SaveName(owner, s.project.ID, &SaveNameRequest{Name: "Acme 2"})
	s.Require().NoError(err)
	s.Equal("Acme 2", p.Name)
	s.Equal(models.TotalSteps, p.CurrentStep)
	s.Equal(models.TotalSteps, p.LastEditedStep)
	s.Equal(models.ProjectStatusActive, p.Status)
}

func (s *WizardSuite) TestSaveDraftRejectsBlankRequiredFields() {
	s.throughDescription()
	blank := "  "
	_, err := s.wizard.SaveDraft(s.actor(s.owner), s.project.ID, &SaveDraftRequest{Name: &blank})
	s.requireStatus(err, http.StatusBadRequest)
	_, err = s.wizard.SaveDraft(s.actor(s.owner), s.project.ID, &SaveDraftRequest{Description: &blank})
	s.requireStatus(err, http.StatusBadRequest)

	p := s.reloadProject()
	s.Equal("Acme", p.Name)
	s.Equal("A widget", p.Description)

	empty := ""
	p, err = s.wizard.SaveDraft(s.actor(s.owner), s.project.ID, &SaveDraftRequest{Platform: &empty})
	s.Require().NoError(err)
	s.Empty(p.Platform)
}
