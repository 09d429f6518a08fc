package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/fallback"
	"github.com/satriahrh/temantidur/server/internal/language"
	"github.com/satriahrh/temantidur/server/internal/persona"
)

// Default sampling for chat completions
const (
	DefaultChatMaxTokens   = 200
	DefaultChatTemperature = 0.9
	DefaultChatTopP        = 1.0
)

// ChatRequest is one chat turn. The client resends the whole history.
type ChatRequest struct {
	Messages    []repositories.ChatMessage `json:"messages"`
	MaxTokens   *int                       `json:"max_tokens,omitempty"`
	Temperature *float32                   `json:"temperature,omitempty"`
	TopP        *float32                   `json:"top_p,omitempty"`
}

// ChatResponse carries the companion's reply, canned or generated
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatService handles conversation logic
type ChatService struct {
	llm       repositories.LargeLanguageModel
	prompts   *persona.Builder
	fallbacks *fallback.Table
	logger    *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(llm repositories.LargeLanguageModel, prompts *persona.Builder, fallbacks *fallback.Table, logger *zap.Logger) *ChatService {
	return &ChatService{
		llm:       llm,
		prompts:   prompts,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Chat answers the latest user turn in the language it was written in.
// It never fails: provider errors become persona fallback replies.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) ChatResponse {
	turns := conversationTurns(req.Messages)
	if len(turns) == 0 {
		s.logger.Warn("Chat request without messages")
		return ChatResponse{Reply: s.fallbacks.Lookup(entities.FeatureChat, entities.FailureBadRequest, entities.LanguageIndonesian, fallback.Vars{})}
	}

	lang := language.Detect(latestUserContent(turns))

	outbound := make([]repositories.ChatMessage, 0, len(turns)+2)
	outbound = append(outbound, s.prompts.SystemPrompt(entities.FeatureChat, lang, persona.Vars{}))
	if len(turns) == 1 {
		outbound = append(outbound, s.prompts.IntroTurn(entities.FeatureChat, lang))
	}
	outbound = append(outbound, turns...)

	options := repositories.CompletionOptions{
		MaxTokens:   DefaultChatMaxTokens,
		Temperature: DefaultChatTemperature,
		TopP:        DefaultChatTopP,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		options.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		options.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		options.TopP = *req.TopP
	}

	reply, err := s.llm.Complete(ctx, outbound, options)
	if err != nil {
		category := entities.CategoryOf(err)
		if category == entities.FailureContentFiltered && !violatesContentPolicy(err) {
			category = entities.FailureBadRequest
		}

		s.logger.Warn("Chat completion failed, answering with fallback",
			zap.String("feature", string(entities.FeatureChat)),
			zap.String("category", string(category)),
			zap.String("language", lang.String()),
			zap.String("detail", providerDetail(err)))

		return ChatResponse{Reply: s.fallbacks.Lookup(entities.FeatureChat, category, lang, fallback.Vars{})}
	}

	s.logger.Info("Chat reply generated",
		zap.String("language", lang.String()),
		zap.Int("turns", len(turns)),
		zap.Bool("intro", len(turns) == 1))

	return ChatResponse{Reply: reply}
}

// MalformedRequest answers a chat request whose body could not be decoded
func (s *ChatService) MalformedRequest() ChatResponse {
	return ChatResponse{Reply: s.fallbacks.Lookup(entities.FeatureChat, entities.FailureInvalidJSON, entities.LanguageIndonesian, fallback.Vars{})}
}

// conversationTurns drops system turns and anything that is not a user or
// assistant message. Callers may not inject their own system prompt.
func conversationTurns(messages []repositories.ChatMessage) []repositories.ChatMessage {
	turns := make([]repositories.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case repositories.UserRole, repositories.AssistantRole:
			turns = append(turns, msg)
		}
	}
	return turns
}

func latestUserContent(turns []repositories.ChatMessage) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == repositories.UserRole {
			return turns[i].Content
		}
	}
	return ""
}

// userContent joins every user turn, in order
func userContent(turns []repositories.ChatMessage) string {
	var parts []string
	for _, turn := range turns {
		if turn.Role == repositories.UserRole {
			parts = append(parts, turn.Content)
		}
	}
	return strings.Join(parts, " ")
}
