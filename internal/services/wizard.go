package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// WizardService drives a project through the six planning steps.
// Every operation is reserved to the project owner.
type WizardService struct {
	db        *gorm.DB
	generator ContentGenerator
	hub       *SSEHub
}

func NewWizardService(db *gorm.DB, generator ContentGenerator, hub *SSEHub) *WizardService {
	return &WizardService{db: db, generator: generator, hub: hub}
}

type SaveNameRequest struct {
	Name     string `json:"name" binding:"max=200"`
	Category string `json:"category" binding:"max=100"`
	Platform string `json:"platform" binding:"max=100"`
}

type SaveDescriptionRequest struct {
	Description string `json:"description"`
	TechStack   string `json:"tech_stack" binding:"max=1000"`
}

type AnswerInput struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"dive"`
}

// SaveDraftRequest patches wizard fields without advancing.
type SaveDraftRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Platform    *string `json:"platform"`
	TechStack   *string `json:"tech_stack"`
}

var errStepLocked = response.NewBadRequest("complete the previous step first")

// beginStep checks ownership and that the step has been reached.
func (s *WizardService) beginStep(actor Actor, projectID uint, step int) (*models.Project, error) {
	project, err := authorizeOwner(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	if step < models.StepName || step > project.CurrentStep {
		return nil, errStepLocked
	}
	return project, nil
}

// advance moves the wizard past step and applies extra column updates.
// Re-running an earlier step never moves current_step backwards.
func advance(tx *gorm.DB, project *models.Project, step int, extra map[string]interface{}) error {
	next := step + 1
	if project.CurrentStep > next {
		next = project.CurrentStep
	}
	if next > models.TotalSteps {
		next = models.TotalSteps
	}
	updates := map[string]interface{}{
		"current_step":     next,
		"last_edited_step": next,
		"last_draft_save":  time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	return tx.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error
}

func (s *WizardService) finish(actor Actor, projectID uint, step int) (*models.Project, error) {
	wizardSteps.WithLabelValues(strconv.Itoa(step)).Inc()
	logger.Module("wizard").Info().Uint("project_id", projectID).Int("step", step).Msg("wizard step completed")
	publish(s.hub, projectID, EntityProject, ActionUpdated, projectID, actor.UserID)
	return loadProject(s.db, projectID)
}

// SaveName completes step 1.
func (s *WizardService) SaveName(actor Actor, projectID uint, req *SaveNameRequest) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepName)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("project name is required")
	}

	extra := map[string]interface{}{"name": name}
	if c := strings.TrimSpace(req.Category); c != "" {
		extra["category"] = c
	}
	if p := strings.TrimSpace(req.Platform); p != "" {
		extra["platform"] = p
	}
	if err := advance(s.db, project, models.StepName, extra); err != nil {
		return nil, err
	}
	return s.finish(actor, project.ID, models.StepName)
}

// SaveDescription completes step 2 and generates the clarifying questions
// the first time it runs. A failed generation leaves the project untouched.
func (s *WizardService) SaveDescription(ctx context.Context, actor Actor, projectID uint, req *SaveDescriptionRequest) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepDescription)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, response.NewBadRequest("project description is required")
	}
	techStack := strings.TrimSpace(req.TechStack)

	project.Description = description
	if techStack != "" {
		project.TechStack = techStack
	}
	generated, err := prepareQuestions(ctx, s.db, s.generator, project, actor.UserID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := insertQuestions(tx, project.ID, generated); err != nil {
			return err
		}
		extra := map[string]interface{}{
			"description":              description,
			"questions_generated":      true,
			"can_proceed_from_context": true,
		}
		if techStack != "" {
			extra["tech_stack"] = techStack
		}
		return advance(tx, project, models.StepDescription, extra)
	})
	if err != nil {
		return nil, err
	}
	if generated != nil {
		publish(s.hub, project.ID, EntityQuestion, ActionCreated, 0, actor.UserID)
	}
	return s.finish(actor, project.ID, models.StepDescription)
}

// SaveAnswers completes step 3. Submitted answers are upserted and every
// required question must end up with a non-empty answer.
func (s *WizardService) SaveAnswers(actor Actor, projectID uint, req *SaveAnswersRequest) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepQuestions)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(req.Answers))
		for _, a := range req.Answers {
			ids = append(ids, a.QuestionID)
		}
		if err := checkQuestionsBelong(tx, project.ID, ids); err != nil {
			return err
		}
		for _, a := range req.Answers {
			if _, err := upsertAnswer(tx, project.ID, a.QuestionID, strings.TrimSpace(a.Answer)); err != nil {
				return err
			}
		}

		var missing int64
		err := tx.Model(&models.ProjectQuestion{}).
			Where("project_questions.project_id = ? AND project_questions.required = ?", project.ID, true).
			Where("NOT EXISTS (?)", tx.Model(&models.ProjectAnswer{}).
				Select("1").
				Where("project_answers.question_id = project_questions.id AND project_answers.answer <> ''")).
			Count(&missing).Error
		if err != nil {
			return err
		}
		if missing > 0 {
			return response.NewBadRequest("please answer all required questions")
		}

		return advance(tx, project, models.StepQuestions, map[string]interface{}{"questions_answered": true})
	})
	if err != nil {
		return nil, err
	}
	publish(s.hub, project.ID, EntityAnswer, ActionUpdated, 0, actor.UserID)
	return s.finish(actor, project.ID, models.StepQuestions)
}

// CompleteFeatures completes step 4. Features are managed by the feature catalog.
func (s *WizardService) CompleteFeatures(actor Actor, projectID uint) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepFeatures)
	if err != nil {
		return nil, err
	}
	if err := advance(s.db, project, models.StepFeatures, nil); err != nil {
		return nil, err
	}
	return s.finish(actor, project.ID, models.StepFeatures)
}

// GenerateProjectPrompt writes the project-wide coding prompt during step 5.
func (s *WizardService) GenerateProjectPrompt(ctx context.Context, actor Actor, projectID uint) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepPrompts)
	if err != nil {
		return nil, err
	}
	in, err := buildGenerationInput(s.db, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	prompt, err := s.generator.ProjectPrompt(ctx, in)
	if err != nil {
		return nil, asExternalError(err)
	}

	err = s.db.Model(&models.Project{}).Where("id = ?", project.ID).Updates(map[string]interface{}{
		"ai_prompt":         prompt,
		"prompts_generated": true,
		"last_draft_save":   time.Now(),
	}).Error
	if err != nil {
		return nil, err
	}
	publish(s.hub, project.ID, EntityProject, ActionUpdated, project.ID, actor.UserID)
	return loadProject(s.db, project.ID)
}

// GenerateFeaturePrompt writes a coding prompt for a feature already on the task board.
func (s *WizardService) GenerateFeaturePrompt(ctx context.Context, actor Actor, projectID, featureID uint) (*models.Feature, error) {
	project, err := s.beginStep(actor, projectID, models.StepPrompts)
	if err != nil {
		return nil, err
	}
	feature, err := loadFeature(s.db, project.ID, featureID)
	if err != nil {
		return nil, err
	}
	if !feature.AddedToTask {
		return nil, response.NewBadRequest("add the feature to the task board before generating its prompt")
	}

	in, err := buildGenerationInput(s.db, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	prompt, err := s.generator.FeaturePrompt(ctx, in, feature)
	if err != nil {
		return nil, asExternalError(err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(feature).Update("ai_prompt", prompt).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", project.ID).Updates(map[string]interface{}{
			"prompts_generated": true,
			"last_draft_save":   time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	feature.AIPrompt = prompt
	publish(s.hub, project.ID, EntityFeature, ActionUpdated, feature.ID, actor.UserID)
	return feature, nil
}

// CompletePrompts completes step 5.
func (s *WizardService) CompletePrompts(actor Actor, projectID uint) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepPrompts)
	if err != nil {
		return nil, err
	}
	if err := advance(s.db, project, models.StepPrompts, nil); err != nil {
		return nil, err
	}
	return s.finish(actor, project.ID, models.StepPrompts)
}

// Finalize completes step 6: it stores a generated summary and activates the project.
func (s *WizardService) Finalize(ctx context.Context, actor Actor, projectID uint) (*models.Project, error) {
	project, err := s.beginStep(actor, projectID, models.StepSummary)
	if err != nil {
		return nil, err
	}
	in, err := buildGenerationInput(s.db, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	summary, err := s.generator.Summary(ctx, in)
	if err != nil {
		return nil, asExternalError(err)
	}

	err = s.db.Model(&models.Project{}).Where("id = ?", project.ID).Updates(map[string]interface{}{
		"summary":          summary,
		"status":           models.ProjectStatusActive,
		"current_step":     models.TotalSteps,
		"last_edited_step": models.TotalSteps,
		"last_draft_save":  time.Now(),
	}).Error
	if err != nil {
		return nil, err
	}
	return s.finish(actor, project.ID, models.StepSummary)
}

// PreviousStep moves the wizard back one step without touching any data.
func (s *WizardService) PreviousStep(actor Actor, projectID uint) (*models.Project, error) {
	project, err := authorizeOwner(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}
	step := project.CurrentStep - 1
	if step < models.StepName {
		step = models.StepName
	}
	if err := s.db.Model(&models.Project{}).Where("id = ?", project.ID).Update("current_step", step).Error; err != nil {
		return nil, err
	}
	publish(s.hub, project.ID, EntityProject, ActionUpdated, project.ID, actor.UserID)
	return loadProject(s.db, project.ID)
}

// SaveDraft stores partial wizard input without advancing.
func (s *WizardService) SaveDraft(actor Actor, projectID uint, req *SaveDraftRequest) (*models.Project, error) {
	project, err := authorizeOwner(s.db, actor, projectID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"last_draft_save": time.Now()}
	fields := []struct {
		column string
		value  *string
	}{
		{"name", req.Name},
		{"description", req.Description},
		{"category", req.Category},
		{"platform", req.Platform},
		{"tech_stack", req.TechStack},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" && (f.column == "name" || f.column == "description") {
			return nil, response.NewBadRequest(f.column + " cannot be empty")
		}
		updates[f.column] = v
	}
	if err := s.db.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	publish(s.hub, project.ID, EntityProject, ActionUpdated, project.ID, actor.UserID)
	return loadProject(s.db, project.ID)
}

func loadFeature(db *gorm.DB, projectID, featureID uint) (*models.Feature, error) {
	var feature models.Feature
	err := db.Where("id = ? AND project_id = ?", featureID, projectID).First(&feature).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("feature not found")
	}
	if err != nil {
		return nil, err
	}
	return &feature, nil
}
