package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

// ErrNoLLMProvider means no active LLM config exists and no fallback key is set.
var ErrNoLLMProvider = errors.New("no LLM configuration available")

// Completer sends a single prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

type CompletionRequest struct {
	ProjectID uint
	UserID    uint
	Operation string
	System    string
	Prompt    string
}

// AIService calls the configured LLM providers in order until one answers.
type AIService struct {
	db     *gorm.DB
	config *config.OpenAIConfig
	usage  *AIUsageService
}

func NewAIService(db *gorm.DB, cfg *config.OpenAIConfig) *AIService {
	return &AIService{
		db:     db,
		config: cfg,
		usage:  NewAIUsageService(db),
	}
}

func (s *AIService) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	llmConfigs := s.getOrderedLLMConfigs()
	if len(llmConfigs) == 0 {
		return "", ErrNoLLMProvider
	}

	log := logger.Module("ai")
	var lastErr error
	for i := range llmConfigs {
		llmConfig := &llmConfigs[i]
		log.Debug().
			Str("operation", req.Operation).
			Str("llm", llmConfig.Name).
			Str("provider", llmConfig.Provider).
			Int("attempt", i+1).
			Int("prompt_chars", len(req.Prompt)).
			Msg("calling LLM")

		start := time.Now()
		content, err := s.callLLM(ctx, llmConfig, req.System, req.Prompt)
		latency := time.Since(start)
		s.recordUsage(req, llmConfig, content, latency, err)

		if err == nil {
			generationLatency.WithLabelValues(req.Operation).Observe(latency.Seconds())
			log.Info().Str("operation", req.Operation).Str("llm", llmConfig.Name).Dur("latency", latency).Msg("LLM call succeeded")
			return content, nil
		}

		lastErr = err
		log.Warn().Err(err).Str("operation", req.Operation).Str("llm", llmConfig.Name).Msg("LLM call failed, trying next")
		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *AIService) recordUsage(req *CompletionRequest, llmConfig *models.LLMConfig, content string, latency time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	provider := llmConfig.Provider
	if provider == "" {
		provider = models.ProviderOpenAI
	}
	generationCalls.WithLabelValues(req.Operation, provider, outcome).Inc()

	entry := &models.AIUsageLog{
		UserID:      req.UserID,
		Operation:   req.Operation,
		LLMConfigID: llmConfig.ID,
		Provider:    provider,
		Model:       llmConfig.Model,
		PromptChars: len(req.Prompt),
		ReplyChars:  len(content),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
	}
	if req.ProjectID != 0 {
		pid := req.ProjectID
		entry.ProjectID = &pid
	}
	if err != nil {
		msg := err.Error()
		if len(msg) > 500 {
			msg = msg[:500]
		}
		entry.Error = msg
	}
	s.usage.Record(entry)
}

// getOrderedLLMConfigs returns the default config first, then the other active
// configs by id. When none exist the OpenAI section of the config file is used.
func (s *AIService) getOrderedLLMConfigs() []models.LLMConfig {
	var configs []models.LLMConfig

	var defaultConfig models.LLMConfig
	if err := s.db.Where("is_default = ? AND is_active = ?", true, true).First(&defaultConfig).Error; err == nil {
		configs = append(configs, defaultConfig)
	}

	var backupConfigs []models.LLMConfig
	s.db.Where("is_active = ?", true).Order("id ASC").Find(&backupConfigs)
	for _, c := range backupConfigs {
		if len(configs) > 0 && c.ID == configs[0].ID {
			continue
		}
		configs = append(configs, c)
	}

	if len(configs) == 0 && s.config != nil && s.config.APIKey != "" {
		configs = append(configs, models.LLMConfig{
			Name:     "fallback",
			Provider: models.ProviderOpenAI,
			BaseURL:  s.config.BaseURL,
			APIKey:   s.config.APIKey,
			Model:    s.config.Model,
		})
	}

	return configs
}

// callLLM dispatches to the appropriate provider-specific function based on Provider field
func (s *AIService) callLLM(ctx context.Context, llmConfig *models.LLMConfig, system, prompt string) (string, error) {
	switch llmConfig.Provider {
	case models.ProviderAnthropic:
		return s.callAnthropic(ctx, llmConfig, system, prompt)
	case models.ProviderOllama:
		return s.callOllama(ctx, llmConfig, system, prompt)
	case models.ProviderGemini:
		return s.callGemini(ctx, llmConfig, system, prompt)
	case models.ProviderAzure:
		cfg := openai.DefaultAzureConfig(llmConfig.APIKey, llmConfig.BaseURL)
		return s.callChatCompletion(ctx, openai.NewClientWithConfig(cfg), llmConfig, system, prompt)
	default:
		// openai and other OpenAI-compatible services
		cfg := openai.DefaultConfig(llmConfig.APIKey)
		if llmConfig.BaseURL != "" {
			cfg.BaseURL = llmConfig.BaseURL
		}
		return s.callChatCompletion(ctx, openai.NewClientWithConfig(cfg), llmConfig, system, prompt)
	}
}

func (s *AIService) callChatCompletion(ctx context.Context, client *openai.Client, llmConfig *models.LLMConfig, system, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       llmConfig.Model,
		Messages:    messages,
		Temperature: temperatureOf(llmConfig),
	}
	if llmConfig.MaxTokens > 0 {
		req.MaxTokens = llmConfig.MaxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", providerName(llmConfig), err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", providerName(llmConfig))
	}
	return resp.Choices[0].Message.Content, nil
}

// callAnthropic handles Anthropic Claude API using the native SDK
func (s *AIService) callAnthropic(ctx context.Context, llmConfig *models.LLMConfig, system, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(llmConfig.APIKey)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(llmConfig.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(llmConfig.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}
	model := llmConfig.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return content.String(), nil
}

// callOllama handles Ollama API using the native SDK
func (s *AIService) callOllama(ctx context.Context, llmConfig *models.LLMConfig, system, prompt string) (string, error) {
	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := llmConfig.Model
	if model == "" {
		model = "llama3"
	}

	var messages []api.Message
	if system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{Role: "user", Content: prompt})

	stream := false
	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Format:   []byte(`"json"`),
		Options: map[string]interface{}{
			"temperature": llmConfig.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	return content.String(), nil
}

// callGemini handles Google Gemini API using the native SDK
func (s *AIService) callGemini(ctx context.Context, llmConfig *models.LLMConfig, system, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  llmConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := llmConfig.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	temperature := float32(temperatureOf(llmConfig))
	genCfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}

func temperatureOf(llmConfig *models.LLMConfig) float32 {
	if llmConfig.Temperature > 0 {
		return float32(llmConfig.Temperature)
	}
	return 0.7
}

func providerName(llmConfig *models.LLMConfig) string {
	if llmConfig.Provider == models.ProviderAzure {
		return "Azure OpenAI"
	}
	return "OpenAI"
}
