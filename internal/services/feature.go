package services

import (
	"context"
	"strings"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// FeatureService manages a project's feature catalog. Writes need the owner or admin role.
type FeatureService struct {
	db        *gorm.DB
	generator ContentGenerator
	hub       *SSEHub
}

func NewFeatureService(db *gorm.DB, generator ContentGenerator, hub *SSEHub) *FeatureService {
	return &FeatureService{db: db, generator: generator, hub: hub}
}

type FeatureInput struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Priority           string `json:"priority"`
	Effort             string `json:"effort"`
	Category           string `json:"category"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
	TechnicalNotes     string `json:"technical_notes"`
}

type CreateFeaturesRequest struct {
	Features []FeatureInput `json:"features" binding:"required,min=1"`
}

type UpdateFeatureRequest struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	Priority           *string `json:"priority"`
	Effort             *string `json:"effort"`
	Category           *string `json:"category"`
	AcceptanceCriteria *string `json:"acceptance_criteria"`
	TechnicalNotes     *string `json:"technical_notes"`
}

func enumOrDefault(value string, allowed []string, def, field string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	if !models.Contains(allowed, value) {
		return "", response.NewBadRequest("invalid " + field + ": " + value)
	}
	return value, nil
}

// toFeature validates input and fills enum defaults.
func (in *FeatureInput) toFeature(projectID uint) (*models.Feature, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, response.NewBadRequest("feature title is required")
	}
	if len(title) > 300 {
		return nil, response.NewBadRequest("feature title is too long")
	}
	priority, err := enumOrDefault(in.Priority, models.Priorities, models.DefaultPriority, "priority")
	if err != nil {
		return nil, err
	}
	effort, err := enumOrDefault(in.Effort, models.Efforts, models.DefaultEffort, "effort")
	if err != nil {
		return nil, err
	}
	category, err := enumOrDefault(in.Category, models.Categories, models.DefaultCategory, "category")
	if err != nil {
		return nil, err
	}
	return &models.Feature{
		ProjectID:          projectID,
		Title:              title,
		Description:        strings.TrimSpace(in.Description),
		Priority:           priority,
		Effort:             effort,
		Category:           category,
		AcceptanceCriteria: strings.TrimSpace(in.AcceptanceCriteria),
		TechnicalNotes:     strings.TrimSpace(in.TechnicalNotes),
	}, nil
}

// List returns the project's features, oldest first.
func (s *FeatureService) List(actor Actor, projectID uint) ([]models.Feature, error) {
	features := []models.Feature{}
	_, _, ok, err := authorizeQuery(s.db, actor, projectID)
	if err != nil || !ok {
		return features, err
	}
	err = s.db.Where("project_id = ?", projectID).Order("id ASC").Find(&features).Error
	return features, err
}

// Create adds one feature.
func (s *FeatureService) Create(actor Actor, projectID uint, in *FeatureInput) (*models.Feature, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	feature, err := in.toFeature(project.ID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(feature).Error; err != nil {
		return nil, err
	}
	publish(s.hub, project.ID, EntityFeature, ActionCreated, feature.ID, actor.UserID)
	return feature, nil
}

// CreateMany inserts a batch, skipping titles that already exist in the
// project (case-insensitive) or repeat within the batch.
func (s *FeatureService) CreateMany(actor Actor, projectID uint, inputs []FeatureInput) ([]models.Feature, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	features := make([]*models.Feature, 0, len(inputs))
	for i := range inputs {
		f, err := inputs[i].toFeature(project.ID)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}

	created, err := s.insertDeduplicated(project.ID, features)
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		publish(s.hub, project.ID, EntityFeature, ActionCreated, 0, actor.UserID)
	}
	return created, nil
}

func (s *FeatureService) insertDeduplicated(projectID uint, features []*models.Feature) ([]models.Feature, error) {
	created := []models.Feature{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&models.Feature{}).Where("project_id = ?", projectID).Pluck("title", &existing).Error; err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing)+len(features))
		for _, t := range existing {
			seen[strings.ToLower(strings.TrimSpace(t))] = true
		}
		for _, f := range features {
			key := strings.ToLower(f.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := tx.Create(f).Error; err != nil {
				return err
			}
			created = append(created, *f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Generate asks the generator for features and stores the new ones.
func (s *FeatureService) Generate(ctx context.Context, actor Actor, projectID uint) ([]models.Feature, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	in, err := buildGenerationInput(s.db, project, actor.UserID)
	if err != nil {
		return nil, err
	}
	generated, err := s.generator.Features(ctx, in)
	if err != nil {
		logger.Module("feature").Warn().Err(err).Uint("project_id", project.ID).Msg("feature generation failed")
		return nil, asExternalError(err)
	}

	features := make([]*models.Feature, 0, len(generated))
	for _, g := range generated {
		input := FeatureInput(g)
		f, err := input.toFeature(project.ID)
		if err != nil {
			// the schema check already ran, so this is a title the model left blank
			continue
		}
		features = append(features, f)
	}

	created, err := s.insertDeduplicated(project.ID, features)
	if err != nil {
		return nil, err
	}
	logger.Module("feature").Info().Uint("project_id", project.ID).Int("generated", len(generated)).Int("created", len(created)).Msg("features generated")
	if len(created) > 0 {
		publish(s.hub, project.ID, EntityFeature, ActionCreated, 0, actor.UserID)
	}
	return created, nil
}

// Update applies a partial patch.
func (s *FeatureService) Update(actor Actor, projectID, featureID uint, req *UpdateFeatureRequest) (*models.Feature, error) {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return nil, err
	}
	feature, err := loadFeature(s.db, project.ID, featureID)
	if err != nil {
		return nil, err
	}

	// validate the merged result, then write only the patched columns
	merged := FeatureInput{
		Title:              feature.Title,
		Description:        feature.Description,
		Priority:           feature.Priority,
		Effort:             feature.Effort,
		Category:           feature.Category,
		AcceptanceCriteria: feature.AcceptanceCriteria,
		TechnicalNotes:     feature.TechnicalNotes,
	}
	updates := map[string]interface{}{}
	patch := func(column string, src *string, dst *string) {
		if src != nil {
			*dst = *src
			updates[column] = nil
		}
	}
	patch("title", req.Title, &merged.Title)
	patch("description", req.Description, &merged.Description)
	patch("priority", req.Priority, &merged.Priority)
	patch("effort", req.Effort, &merged.Effort)
	patch("category", req.Category, &merged.Category)
	patch("acceptance_criteria", req.AcceptanceCriteria, &merged.AcceptanceCriteria)
	patch("technical_notes", req.TechnicalNotes, &merged.TechnicalNotes)

	validated, err := merged.toFeature(project.ID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return feature, nil
	}
	values := map[string]interface{}{
		"title":               validated.Title,
		"description":         validated.Description,
		"priority":            validated.Priority,
		"effort":              validated.Effort,
		"category":            validated.Category,
		"acceptance_criteria": validated.AcceptanceCriteria,
		"technical_notes":     validated.TechnicalNotes,
	}
	for column := range updates {
		updates[column] = values[column]
	}
	if err := s.db.Model(feature).Updates(updates).Error; err != nil {
		return nil, err
	}

	publish(s.hub, project.ID, EntityFeature, ActionUpdated, feature.ID, actor.UserID)
	return loadFeature(s.db, project.ID, feature.ID)
}

// Delete removes the feature together with any task promoted from it.
func (s *FeatureService) Delete(actor Actor, projectID, featureID uint) error {
	project, _, err := authorize(s.db, actor, projectID, managerRoles...)
	if err != nil {
		return err
	}
	feature, err := loadFeature(s.db, project.ID, featureID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feature_id = ?", feature.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(feature).Error
	})
	if err != nil {
		return err
	}
	publish(s.hub, project.ID, EntityFeature, ActionDeleted, feature.ID, actor.UserID)
	if feature.AddedToTask {
		publish(s.hub, project.ID, EntityTask, ActionDeleted, 0, actor.UserID)
	}
	return nil
}
