package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/language"
)

// MockLLM is a deterministic LargeLanguageModel for local development
type MockLLM struct {
	logger *zap.Logger
}

// Ensure MockLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*MockLLM)(nil)

// NewMockLLM creates a new mock language model
func NewMockLLM(logger *zap.Logger) *MockLLM {
	return &MockLLM{logger: logger}
}

// Complete answers in the language of the latest user turn
func (m *MockLLM) Complete(ctx context.Context, messages []repositories.ChatMessage, options repositories.CompletionOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", entities.NewProviderError("mock", entities.FailureConnectionFailed, "context done", err)
	}

	var latest string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == repositories.UserRole {
			latest = messages[i].Content
			break
		}
	}
	latest = strings.TrimSpace(latest)
	preview := latest
	if runes := []rune(preview); len(runes) > 40 {
		preview = string(runes[:40]) + "..."
	}

	m.logger.Debug("Mock completion", zap.Int("turns", len(messages)), zap.Int("max_tokens", options.MaxTokens))

	if language.Detect(latest) == entities.LanguageEnglish {
		return fmt.Sprintf("Thank you for telling me \"%s\". I'm right here with you tonight. What else is on your mind?", preview), nil
	}
	return fmt.Sprintf("Makasih udah cerita \"%s\". Aku di sini nemenin kamu malam ini. Apa lagi yang lagi kamu pikirin?", preview), nil
}
