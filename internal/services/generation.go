package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// Generation operations, used for usage records and metrics.
const (
	OpQuestions     = "questions"
	OpFeatures      = "features"
	OpProjectPrompt = "project_prompt"
	OpFeaturePrompt = "feature_prompt"
	OpSummary       = "summary"
)

// GenerationInput is the project context handed to the generator.
type GenerationInput struct {
	ProjectID     uint
	UserID        uint
	Name          string
	Description   string
	Category      string
	Platform      string
	TechStack     string
	Answers       []QuestionAnswer
	FeatureTitles []string
	Features      []models.Feature
}

type QuestionAnswer struct {
	Section  string
	Question string
	Answer   string
}

type GeneratedQuestion struct {
	Section   string   `json:"section" validate:"required,max=100"`
	Question  string   `json:"question" validate:"required"`
	InputType string   `json:"input_type" validate:"omitempty,oneof=text textarea select"`
	Options   []string `json:"options,omitempty"`
	Required  bool     `json:"required"`
}

type GeneratedFeature struct {
	Title              string `json:"title" validate:"required,max=300"`
	Description        string `json:"description" validate:"required"`
	Priority           string `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Effort             string `json:"effort" validate:"omitempty,oneof=Small Medium Large XL"`
	Category           string `json:"category" validate:"omitempty,oneof=Core Enhancement Integration UI/UX Performance Security"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	TechnicalNotes     string `json:"technical_notes,omitempty"`
}

// ContentGenerator produces the AI-authored parts of a project.
type ContentGenerator interface {
	Questions(ctx context.Context, in *GenerationInput) ([]GeneratedQuestion, error)
	Features(ctx context.Context, in *GenerationInput) ([]GeneratedFeature, error)
	ProjectPrompt(ctx context.Context, in *GenerationInput) (string, error)
	FeaturePrompt(ctx context.Context, in *GenerationInput, feature *models.Feature) (string, error)
	Summary(ctx context.Context, in *GenerationInput) (string, error)
}

const systemPrompt = "You are a senior product manager and software architect helping a user plan a software project. " +
	"When asked for JSON, reply with JSON only."

// LLMGenerator implements ContentGenerator on top of a Completer. When no
// provider is configured it answers from built-in defaults instead of failing.
type LLMGenerator struct {
	ai Completer
}

func NewLLMGenerator(ai Completer) *LLMGenerator {
	return &LLMGenerator{ai: ai}
}

func (g *LLMGenerator) complete(ctx context.Context, in *GenerationInput, op, prompt string) (string, error) {
	reply, err := g.ai.Complete(ctx, &CompletionRequest{
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		Operation: op,
		System:    systemPrompt,
		Prompt:    prompt,
	})
	if err != nil {
		if errors.Is(err, ErrNoLLMProvider) {
			return "", err
		}
		return "", &GenerationError{Operation: op, Kind: GenerationKindProvider, Err: err}
	}
	return reply, nil
}

func (g *LLMGenerator) Questions(ctx context.Context, in *GenerationInput) ([]GeneratedQuestion, error) {
	reply, err := g.complete(ctx, in, OpQuestions, questionsPrompt(in))
	if errors.Is(err, ErrNoLLMProvider) {
		logger.Module("ai").Info().Uint("project_id", in.ProjectID).Msg("no LLM provider, using default questions")
		return defaultQuestions(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeReply[GeneratedQuestion](OpQuestions, reply, "questions")
}

func (g *LLMGenerator) Features(ctx context.Context, in *GenerationInput) ([]GeneratedFeature, error) {
	reply, err := g.complete(ctx, in, OpFeatures, featuresPrompt(in))
	if errors.Is(err, ErrNoLLMProvider) {
		logger.Module("ai").Info().Uint("project_id", in.ProjectID).Msg("no LLM provider, using default features")
		return defaultFeatures(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeReply[GeneratedFeature](OpFeatures, reply, "features")
}

func (g *LLMGenerator) ProjectPrompt(ctx context.Context, in *GenerationInput) (string, error) {
	reply, err := g.complete(ctx, in, OpProjectPrompt, projectPromptRequest(in))
	if errors.Is(err, ErrNoLLMProvider) {
		return defaultProjectPrompt(in), nil
	}
	if err != nil {
		return "", err
	}
	return nonEmptyText(OpProjectPrompt, reply)
}

func (g *LLMGenerator) FeaturePrompt(ctx context.Context, in *GenerationInput, feature *models.Feature) (string, error) {
	reply, err := g.complete(ctx, in, OpFeaturePrompt, featurePromptRequest(in, feature))
	if errors.Is(err, ErrNoLLMProvider) {
		return defaultFeaturePrompt(in, feature), nil
	}
	if err != nil {
		return "", err
	}
	return nonEmptyText(OpFeaturePrompt, reply)
}

func (g *LLMGenerator) Summary(ctx context.Context, in *GenerationInput) (string, error) {
	reply, err := g.complete(ctx, in, OpSummary, summaryPrompt(in))
	if errors.Is(err, ErrNoLLMProvider) {
		return defaultSummary(in), nil
	}
	if err != nil {
		return "", err
	}
	return nonEmptyText(OpSummary, reply)
}

func nonEmptyText(op, reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return "", &GenerationError{Operation: op, Kind: GenerationKindSchema, Raw: reply, Err: errors.New("empty reply")}
	}
	return text, nil
}

func writeProjectContext(b *strings.Builder, in *GenerationInput) {
	fmt.Fprintf(b, "Project name: %s\n", in.Name)
	fmt.Fprintf(b, "Description: %s\n", in.Description)
	if in.Category != "" {
		fmt.Fprintf(b, "Category: %s\n", in.Category)
	}
	if in.Platform != "" {
		fmt.Fprintf(b, "Platform: %s\n", in.Platform)
	}
	if in.TechStack != "" {
		fmt.Fprintf(b, "Tech stack: %s\n", in.TechStack)
	}
	if len(in.Answers) > 0 {
		b.WriteString("\nClarifications:\n")
		for _, qa := range in.Answers {
			if strings.TrimSpace(qa.Answer) == "" {
				continue
			}
			fmt.Fprintf(b, "- Q: %s\n  A: %s\n", qa.Question, qa.Answer)
		}
	}
}

func questionsPrompt(in *GenerationInput) string {
	var b strings.Builder
	writeProjectContext(&b, in)
	b.WriteString(`
Write exactly 5 clarifying questions that would help turn this idea into a feature list.
Cover target users, core problem, key workflows, constraints and success criteria.
Reply with JSON of the form:
{"questions": [{"section": "Users", "question": "...", "input_type": "textarea", "required": true}]}
input_type is one of text, textarea, select; select questions carry an "options" array.`)
	return b.String()
}

func featuresPrompt(in *GenerationInput) string {
	var b strings.Builder
	writeProjectContext(&b, in)
	if len(in.FeatureTitles) > 0 {
		b.WriteString("\nFeatures that already exist (do not repeat them):\n")
		for _, t := range in.FeatureTitles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	b.WriteString(`
Propose 5 to 8 features for this project.
Reply with JSON of the form:
{"features": [{"title": "...", "description": "...", "priority": "High", "effort": "Medium", "category": "Core", "acceptance_criteria": "...", "technical_notes": "..."}]}
priority is one of Low, Medium, High, Critical. effort is one of Small, Medium, Large, XL.
category is one of Core, Enhancement, Integration, UI/UX, Performance, Security.`)
	return b.String()
}

func projectPromptRequest(in *GenerationInput) string {
	var b strings.Builder
	writeProjectContext(&b, in)
	writeFeatureList(&b, in.Features)
	b.WriteString("\nWrite a single prompt a developer can give to an AI coding assistant to scaffold this project. " +
		"Describe architecture, data model, main screens and the order in which to build the features. Reply in Markdown.")
	return b.String()
}

func featurePromptRequest(in *GenerationInput, f *models.Feature) string {
	var b strings.Builder
	writeProjectContext(&b, in)
	fmt.Fprintf(&b, "\nFeature: %s\n%s\n", f.Title, f.Description)
	if f.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "Acceptance criteria: %s\n", f.AcceptanceCriteria)
	}
	if f.TechnicalNotes != "" {
		fmt.Fprintf(&b, "Technical notes: %s\n", f.TechnicalNotes)
	}
	b.WriteString("\nWrite a prompt a developer can give to an AI coding assistant to implement only this feature. Reply in Markdown.")
	return b.String()
}

func summaryPrompt(in *GenerationInput) string {
	var b strings.Builder
	writeProjectContext(&b, in)
	writeFeatureList(&b, in.Features)
	b.WriteString("\nWrite a concise project summary (goal, audience, scope, first milestone) in Markdown, under 300 words.")
	return b.String()
}

func writeFeatureList(b *strings.Builder, features []models.Feature) {
	if len(features) == 0 {
		return
	}
	b.WriteString("\nFeatures:\n")
	for _, f := range features {
		fmt.Fprintf(b, "- %s [%s, %s, %s]: %s\n", f.Title, f.Priority, f.Effort, f.Category, f.Description)
	}
}

// asExternalError maps generator failures onto the 502 taxonomy entry.
func asExternalError(err error) error {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return response.NewBadGateway("AI generation failed, please try again", err)
	}
	return err
}

// buildGenerationInput gathers the project context the prompts need.
func buildGenerationInput(db *gorm.DB, project *models.Project, userID uint) (*GenerationInput, error) {
	in := &GenerationInput{
		ProjectID:   project.ID,
		UserID:      userID,
		Name:        project.Name,
		Description: project.Description,
		Category:    project.Category,
		Platform:    project.Platform,
		TechStack:   project.TechStack,
	}

	var questions []models.ProjectQuestion
	if err := db.Where("project_id = ?", project.ID).Order("display_order ASC, id ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	var answers []models.ProjectAnswer
	if err := db.Where("project_id = ?", project.ID).Find(&answers).Error; err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Answer
	}
	for _, q := range questions {
		in.Answers = append(in.Answers, QuestionAnswer{Section: q.Section, Question: q.Question, Answer: byQuestion[q.ID]})
	}

	if err := db.Where("project_id = ?", project.ID).Order("id ASC").Find(&in.Features).Error; err != nil {
		return nil, err
	}
	for _, f := range in.Features {
		in.FeatureTitles = append(in.FeatureTitles, f.Title)
	}
	return in, nil
}
