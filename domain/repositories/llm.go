package repositories

import "context"

// LargeLanguageModel abstracts any chat completion provider
type LargeLanguageModel interface {
	// Complete sends the whole conversation and returns the model's reply.
	// Failures are *entities.ProviderError values.
	Complete(ctx context.Context, messages []ChatMessage, options CompletionOptions) (string, error)
}

// CompletionOptions holds sampling parameters for a single completion
type CompletionOptions struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of message sender
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)
