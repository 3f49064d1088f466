package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionService struct {
	db        *gorm.DB
	generator ContentGenerator
	hub       *SSEHub
}

func NewQuestionService(db *gorm.DB, generator ContentGenerator, hub *SSEHub) *QuestionService {
	return &QuestionService{db: db, generator: generator, hub: hub}
}

type SaveAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

// Generate creates the project's clarifying questions unless they already exist.
func (s *QuestionService) Generate(ctx context.Context, actor Actor, projectID uint) ([]models.ProjectQuestion, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}

	generated, err := prepareQuestions(ctx, s.db, s.generator, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	if generated != nil {
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if _, err := insertQuestions(tx, project.ID, generated); err != nil {
				return err
			}
			return tx.Model(&models.Project{}).Where("id = ?", project.ID).Updates(map[string]interface{}{
				"questions_generated":      true,
				"can_proceed_from_context": true,
			}).Error
		})
		if err != nil {
			return nil, err
		}
		publish(s.hub, project.ID, EntityQuestion, ActionCreated, 0, actor.UserID)
	}

	return listQuestions(s.db, project.ID)
}

// prepareQuestions calls the generator when the project has no questions yet.
// It returns nil when nothing needs to be inserted.
func prepareQuestions(ctx context.Context, db *gorm.DB, generator ContentGenerator, project *models.Project, userID uint) ([]GeneratedQuestion, error) {
	var count int64
	if err := db.Model(&models.ProjectQuestion{}).Where("project_id = ?", project.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	in, err := buildGenerationInput(db, project, userID)
	if err != nil {
		return nil, err
	}
	generated, err := generator.Questions(ctx, in)
	if err != nil {
		logger.Module("question").Warn().Err(err).Uint("project_id", project.ID).Msg("question generation failed")
		return nil, asExternalError(err)
	}
	return generated, nil
}

// insertQuestions stores generated questions inside tx. It re-checks for
// existing questions so that two concurrent generations insert one set.
func insertQuestions(tx *gorm.DB, projectID uint, generated []GeneratedQuestion) (bool, error) {
	var count int64
	if err := tx.Model(&models.ProjectQuestion{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 || len(generated) == 0 {
		return false, nil
	}

	rows := make([]models.ProjectQuestion, 0, len(generated))
	for i, g := range generated {
		q := models.ProjectQuestion{
			ProjectID:    projectID,
			Section:      strings.TrimSpace(g.Section),
			Question:     strings.TrimSpace(g.Question),
			InputType:    g.InputType,
			DisplayOrder: i + 1,
			Required:     g.Required,
		}
		if q.InputType == "" {
			q.InputType = "textarea"
		}
		if len(g.Options) > 0 {
			if b, err := json.Marshal(g.Options); err == nil {
				q.Options = string(b)
			}
		}
		rows = append(rows, q)
	}
	if err := tx.Create(&rows).Error; err != nil {
		return false, err
	}
	return true, nil
}

func listQuestions(db *gorm.DB, projectID uint) ([]models.ProjectQuestion, error) {
	questions := []models.ProjectQuestion{}
	err := db.Where("project_id = ?", projectID).Order("display_order ASC, id ASC").Find(&questions).Error
	return questions, err
}

// List returns the project's questions in display order.
func (s *QuestionService) List(actor Actor, projectID uint) ([]models.ProjectQuestion, error) {
	_, _, ok, err := authorizeQuery(s.db, actor, projectID)
	if err != nil || !ok {
		return []models.ProjectQuestion{}, err
	}
	return listQuestions(s.db, projectID)
}

// ListAnswers returns the stored answers of the project.
func (s *QuestionService) ListAnswers(actor Actor, projectID uint) ([]models.ProjectAnswer, error) {
	answers := []models.ProjectAnswer{}
	_, _, ok, err := authorizeQuery(s.db, actor, projectID)
	if err != nil || !ok {
		return answers, err
	}
	err = s.db.Where("project_id = ?", projectID).Order("question_id ASC").Find(&answers).Error
	return answers, err
}

// SaveAnswer inserts or updates the single answer to a question.
func (s *QuestionService) SaveAnswer(actor Actor, projectID uint, req *SaveAnswerRequest) (*models.ProjectAnswer, error) {
	project, _, err := authorize(s.db, actor, projectID, editorRoles...)
	if err != nil {
		return nil, err
	}

	var answer *models.ProjectAnswer
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkQuestionsBelong(tx, project.ID, []uint{req.QuestionID}); err != nil {
			return err
		}
		var err error
		answer, err = upsertAnswer(tx, project.ID, req.QuestionID, req.Answer)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(s.hub, project.ID, EntityAnswer, ActionUpdated, answer.ID, actor.UserID)
	return answer, nil
}

func checkQuestionsBelong(tx *gorm.DB, projectID uint, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	unique := make(map[uint]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		unique[id] = struct{}{}
	}
	var count int64
	if err := tx.Model(&models.ProjectQuestion{}).
		Where("project_id = ? AND id IN ?", projectID, questionIDs).
		Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(unique) {
		return response.NewNotFound("question not found")
	}
	return nil
}

// upsertAnswer relies on the unique (project_id, question_id) index.
func upsertAnswer(tx *gorm.DB, projectID, questionID uint, text string) (*models.ProjectAnswer, error) {
	answer := models.ProjectAnswer{ProjectID: projectID, QuestionID: questionID, Answer: text}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
	}).Create(&answer).Error
	if err != nil {
		return nil, err
	}

	// the id is not reliably returned for the update branch on every driver
	var stored models.ProjectAnswer
	if err := tx.Where("project_id = ? AND question_id = ?", projectID, questionID).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("answer not found")
		}
		return nil, err
	}
	return &stored, nil
}
