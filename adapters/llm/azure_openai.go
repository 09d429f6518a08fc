package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

const (
	azureProvider          = "azure_openai"
	defaultAzureAPIVersion = "2024-12-01-preview"
	defaultAzureTimeout    = 30 * time.Second
)

// AzureOpenAIConfig holds configuration for the AzureOpenAI adapter
// Required fields:
// - Endpoint: resource endpoint, e.g. https://my-resource.openai.azure.com
// - APIKey: resource key
// - Deployment: chat model deployment name
// Optional fields with defaults:
// - APIVersion: REST API version (default: "2024-12-01-preview")
// - Timeout: HTTP client timeout (default: 30s)
type AzureOpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

// AzureOpenAI implements the LargeLanguageModel interface over the Azure
// OpenAI chat completions REST API.
type AzureOpenAI struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	client     *http.Client
	logger     *zap.Logger
}

// Ensure AzureOpenAI implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*AzureOpenAI)(nil)

type azureChatRequest struct {
	Messages    []repositories.ChatMessage `json:"messages"`
	MaxTokens   int                        `json:"max_tokens,omitempty"`
	Temperature float32                    `json:"temperature"`
	TopP        float32                    `json:"top_p"`
}

type azureChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ValidateAzureOpenAIConfig validates the AzureOpenAIConfig
func ValidateAzureOpenAIConfig(config AzureOpenAIConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("Azure OpenAI endpoint is required")
	}
	if _, err := url.ParseRequestURI(config.Endpoint); err != nil {
		return fmt.Errorf("Azure OpenAI endpoint is not a valid URL: %w", err)
	}
	if config.APIKey == "" {
		return fmt.Errorf("Azure OpenAI API key is required")
	}
	if config.Deployment == "" {
		return fmt.Errorf("Azure OpenAI deployment name is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewAzureOpenAI creates a new Azure OpenAI adapter
func NewAzureOpenAI(config AzureOpenAIConfig, logger *zap.Logger) (*AzureOpenAI, error) {
	if err := ValidateAzureOpenAIConfig(config); err != nil {
		return nil, err
	}

	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
		logger.Info("Using default API version", zap.String("apiVersion", apiVersion))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultAzureTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	return &AzureOpenAI{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		deployment: config.Deployment,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Complete sends the conversation to the chat completions endpoint
func (a *AzureOpenAI) Complete(ctx context.Context, messages []repositories.ChatMessage, options repositories.CompletionOptions) (string, error) {
	payload, err := json.Marshal(azureChatRequest{
		Messages:    messages,
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
	})
	if err != nil {
		return "", entities.NewProviderError(azureProvider, entities.FailureUnexpected, "failed to marshal request", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.endpoint, url.PathEscape(a.deployment), url.QueryEscape(a.apiVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", entities.NewProviderError(azureProvider, entities.FailureUnexpected, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("Azure OpenAI request failed", zap.Error(err))
		return "", entities.NewProviderError(azureProvider, entities.FailureConnectionFailed, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		a.logger.Warn("Azure OpenAI returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))

		switch resp.StatusCode {
		case http.StatusBadRequest:
			return "", entities.NewProviderError(azureProvider, entities.FailureContentFiltered, detail, nil)
		case http.StatusTooManyRequests:
			return "", entities.NewProviderError(azureProvider, entities.FailureRateLimited, detail, nil)
		default:
			return "", entities.NewProviderError(azureProvider, entities.FailureUnexpected, detail, nil)
		}
	}

	var chatResp azureChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", entities.NewProviderError(azureProvider, entities.FailureUnexpected, "failed to decode response", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", entities.NewProviderError(azureProvider, entities.FailureUnexpected, "no choices returned", nil)
	}

	choice := chatResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", entities.NewProviderError(azureProvider, entities.FailureContentFiltered, "content_filter: completion filtered", nil)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", entities.NewProviderError(azureProvider, entities.FailureUnexpected, "empty completion", nil)
	}

	return choice.Message.Content, nil
}
