package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

func newTestAzure(t *testing.T, handler http.HandlerFunc) *AzureOpenAI {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	azure, err := NewAzureOpenAI(AzureOpenAIConfig{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		Deployment: "gpt-4o-mini",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return azure
}

func TestValidateAzureOpenAIConfig(t *testing.T) {
	valid := AzureOpenAIConfig{Endpoint: "https://example.openai.azure.com", APIKey: "k", Deployment: "d"}
	assert.NoError(t, ValidateAzureOpenAIConfig(valid))

	missingKey := valid
	missingKey.APIKey = ""
	assert.Error(t, ValidateAzureOpenAIConfig(missingKey))

	missingDeployment := valid
	missingDeployment.Deployment = ""
	assert.Error(t, ValidateAzureOpenAIConfig(missingDeployment))

	badEndpoint := valid
	badEndpoint.Endpoint = "not a url"
	assert.Error(t, ValidateAzureOpenAIConfig(badEndpoint))
}

func TestAzureOpenAI_Complete(t *testing.T) {
	var got azureChatRequest
	azure := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o-mini/chat/completions", r.URL.Path)
		assert.Equal(t, defaultAzureAPIVersion, r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Aku di sini."},"finish_reason":"stop"}]}`))
	})

	reply, err := azure.Complete(context.Background(), []repositories.ChatMessage{
		{Role: repositories.SystemRole, Content: "persona"},
		{Role: repositories.UserRole, Content: "aku sedih"},
	}, repositories.CompletionOptions{MaxTokens: 200, Temperature: 0.9, TopP: 1})

	require.NoError(t, err)
	assert.Equal(t, "Aku di sini.", reply)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, repositories.SystemRole, got.Messages[0].Role)
	assert.Equal(t, 200, got.MaxTokens)
	assert.InDelta(t, 0.9, got.Temperature, 0.0001)
}

func TestAzureOpenAI_CompleteFailures(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantCategory   entities.FailureCategory
		wantPolicyFlag bool
	}{
		{
			name:           "content policy",
			status:         http.StatusBadRequest,
			body:           `{"error":{"code":"content_filter","message":"filtered","innererror":{"code":"ResponsibleAIPolicyViolation"}}}`,
			wantCategory:   entities.FailureContentFiltered,
			wantPolicyFlag: true,
		},
		{
			name:         "plain bad request",
			status:       http.StatusBadRequest,
			body:         `{"error":{"code":"invalid_request","message":"messages must not be empty"}}`,
			wantCategory: entities.FailureContentFiltered,
		},
		{
			name:         "rate limited",
			status:       http.StatusTooManyRequests,
			body:         `{"error":{"code":"429","message":"slow down"}}`,
			wantCategory: entities.FailureRateLimited,
		},
		{
			name:         "server error",
			status:       http.StatusInternalServerError,
			body:         `oops`,
			wantCategory: entities.FailureUnexpected,
		},
		{
			name:           "filtered completion",
			status:         http.StatusOK,
			body:           `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`,
			wantCategory:   entities.FailureContentFiltered,
			wantPolicyFlag: true,
		},
		{
			name:         "no choices",
			status:       http.StatusOK,
			body:         `{"choices":[]}`,
			wantCategory: entities.FailureUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			azure := newTestAzure(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := azure.Complete(context.Background(), []repositories.ChatMessage{{Role: repositories.UserRole, Content: "hi"}}, repositories.CompletionOptions{})
			require.Error(t, err)

			var perr *entities.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantCategory, perr.Category)
			assert.Equal(t, tt.wantPolicyFlag, perr.ViolatesContentPolicy())
		})
	}
}

func TestAzureOpenAI_ConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	azure, err := NewAzureOpenAI(AzureOpenAIConfig{
		Endpoint:   url,
		APIKey:     "k",
		Deployment: "d",
		Timeout:    time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = azure.Complete(context.Background(), nil, repositories.CompletionOptions{})
	assert.Equal(t, entities.FailureConnectionFailed, entities.CategoryOf(err))
}
