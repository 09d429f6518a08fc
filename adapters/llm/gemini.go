package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

const (
	geminiProvider        = "gemini"
	defaultModel          = "gemini-2.0-flash"
	defaultTopK           = 40
	defaultTimeoutSeconds = 30
)

// GeminiConfig holds configuration for the GeminiLLM adapter
// Required fields:
// - APIKey: Google AI Studio API key
// Optional fields with defaults:
// - Model: model name (default: "gemini-2.0-flash")
// - TopK: top-k sampling (default: 40)
// - TimeoutSeconds: per completion timeout (default: 30)
// - BaseURL: override of the Gemini API endpoint
type GeminiConfig struct {
	APIKey         string
	Model          string
	TopK           float32
	TimeoutSeconds int
	BaseURL        string
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client         *genai.Client
	logger         *zap.Logger
	model          string
	topK           float32
	timeoutSeconds int
	safetySettings []*genai.SafetySetting
}

// Ensure GeminiLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// Safety thresholds sent with every request
var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	// Validate topK is positive if specified
	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}

	// Validate timeout is reasonable if specified
	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	topK := config.TopK
	if topK == 0 {
		topK = float32(defaultTopK)
		logger.Info("Using default topK", zap.Float32("topK", topK))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
		logger.Info("Using default timeoutSeconds", zap.Int("timeoutSeconds", timeoutSeconds))
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client:         client,
		logger:         logger,
		model:          model,
		topK:           topK,
		timeoutSeconds: timeoutSeconds,
		safetySettings: geminiSafetySettings,
	}, nil
}

// Complete sends the conversation to Gemini and returns the reply text
func (g *GeminiLLM) Complete(ctx context.Context, messages []repositories.ChatMessage, options repositories.CompletionOptions) (string, error) {
	systemInstruction, contents := convertToGeminiFormat(messages)

	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		SafetySettings:    g.safetySettings,
		Temperature:       genai.Ptr(options.Temperature),
		TopP:              genai.Ptr(options.TopP),
		TopK:              genai.Ptr(g.topK),
		MaxOutputTokens:   int32(options.MaxTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.timeoutSeconds)*time.Second)
	defer cancel()

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("Failed to generate content", zap.String("model", g.model), zap.Error(err))
		return "", classifyGeminiError(err)
	}

	text, perr := extractGeminiText(response)
	if perr != nil {
		g.logger.Warn("Gemini returned no usable content",
			zap.String("category", string(perr.Category)),
			zap.String("detail", perr.Detail))
		return "", perr
	}

	g.logger.Debug("Completion generated",
		zap.Int("turns", len(messages)),
		zap.Int("reply_length", len(text)))

	return text, nil
}

// convertToGeminiFormat moves system turns into the system instruction
// and maps assistant turns to the model role.
func convertToGeminiFormat(messages []repositories.ChatMessage) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)

	for _, msg := range messages {
		switch msg.Role {
		case repositories.SystemRole:
			system = append(system, msg.Content)
		case repositories.AssistantRole:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

func extractGeminiText(response *genai.GenerateContentResponse) (string, *entities.ProviderError) {
	if response == nil {
		return "", entities.NewProviderError(geminiProvider, entities.FailureUnexpected, "empty response", nil)
	}

	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		detail := fmt.Sprintf("content_filter: prompt blocked (%s)", response.PromptFeedback.BlockReason)
		return "", entities.NewProviderError(geminiProvider, entities.FailureContentFiltered, detail, nil)
	}

	if len(response.Candidates) == 0 {
		return "", entities.NewProviderError(geminiProvider, entities.FailureUnexpected, "no candidates returned", nil)
	}

	candidate := response.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist,
		genai.FinishReasonSPII:
		detail := fmt.Sprintf("content_filter: completion stopped (%s)", candidate.FinishReason)
		return "", entities.NewProviderError(geminiProvider, entities.FailureContentFiltered, detail, nil)
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", entities.NewProviderError(geminiProvider, entities.FailureUnexpected, "empty completion", nil)
	}
	return text.String(), nil
}

func classifyGeminiError(err error) error {
	if apiErr, ok := asGeminiAPIError(err); ok {
		detail := fmt.Sprintf("status %d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message)
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return entities.NewProviderError(geminiProvider, entities.FailureRateLimited, detail, err)
		case http.StatusBadRequest:
			return entities.NewProviderError(geminiProvider, entities.FailureContentFiltered, detail, err)
		default:
			return entities.NewProviderError(geminiProvider, entities.FailureUnexpected, detail, err)
		}
	}

	if isNetworkError(err) {
		return entities.NewProviderError(geminiProvider, entities.FailureConnectionFailed, err.Error(), err)
	}
	return entities.NewProviderError(geminiProvider, entities.FailureUnexpected, err.Error(), err)
}

func asGeminiAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// isNetworkError reports transport failures, including deadlines, which
// the chat features treat as a lost connection.
func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
