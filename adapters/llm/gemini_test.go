package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

func TestValidateGeminiConfig(t *testing.T) {
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", TopK: -1}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", TimeoutSeconds: -5}))
	assert.NoError(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k"}))
}

func TestConvertToGeminiFormat(t *testing.T) {
	system, contents := convertToGeminiFormat([]repositories.ChatMessage{
		{Role: repositories.SystemRole, Content: "persona"},
		{Role: repositories.AssistantRole, Content: "Hai!"},
		{Role: repositories.UserRole, Content: "aku nggak bisa tidur"},
	})

	require.NotNil(t, system)
	assert.Equal(t, "persona", system.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleModel, contents[0].Role)
	assert.Equal(t, genai.RoleUser, contents[1].Role)
	assert.Equal(t, "aku nggak bisa tidur", contents[1].Parts[0].Text)

	system, contents = convertToGeminiFormat([]repositories.ChatMessage{{Role: repositories.UserRole, Content: "hi"}})
	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestExtractGeminiText(t *testing.T) {
	t.Run("joins text parts", func(t *testing.T) {
		text, perr := extractGeminiText(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Parts: []*genai.Part{{Text: "Aku "}, {Text: "di sini."}}},
				FinishReason: genai.FinishReasonStop,
			}},
		})
		require.Nil(t, perr)
		assert.Equal(t, "Aku di sini.", text)
	})

	t.Run("blocked prompt", func(t *testing.T) {
		_, perr := extractGeminiText(&genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		})
		require.NotNil(t, perr)
		assert.Equal(t, entities.FailureContentFiltered, perr.Category)
		assert.True(t, perr.ViolatesContentPolicy())
	})

	t.Run("safety finish", func(t *testing.T) {
		_, perr := extractGeminiText(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		})
		require.NotNil(t, perr)
		assert.Equal(t, entities.FailureContentFiltered, perr.Category)
		assert.True(t, perr.ViolatesContentPolicy())
	})

	t.Run("no candidates", func(t *testing.T) {
		_, perr := extractGeminiText(&genai.GenerateContentResponse{})
		require.NotNil(t, perr)
		assert.Equal(t, entities.FailureUnexpected, perr.Category)
	})
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want entities.FailureCategory
	}{
		{"rate limited", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, entities.FailureRateLimited},
		{"rate limited pointer", &genai.APIError{Code: 429}, entities.FailureRateLimited},
		{"bad request", fmt.Errorf("wrapped: %w", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}), entities.FailureContentFiltered},
		{"server error", genai.APIError{Code: 503}, entities.FailureUnexpected},
		{"deadline", context.DeadlineExceeded, entities.FailureConnectionFailed},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, entities.FailureConnectionFailed},
		{"other", errors.New("boom"), entities.FailureUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entities.CategoryOf(classifyGeminiError(tt.err)))
		})
	}
}
