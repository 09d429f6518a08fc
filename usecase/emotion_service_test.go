package usecase

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/internal/fallback"
	"github.com/satriahrh/temantidur/server/internal/persona"
)

func newEmotionService(t *testing.T, classifier *fakeClassifier, llm *fakeLLM) *EmotionService {
	return NewEmotionService(classifier, llm, persona.MustNewBuilder(), fallback.MustLoad(), zaptest.NewLogger(t))
}

func TestEmotionService_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		upload      ImageUpload
		status      int
		code        string
		messagePart string
	}{
		{
			name:        "empty file",
			upload:      ImageUpload{ContentType: "image/jpeg"},
			status:      http.StatusBadRequest,
			code:        "Empty File",
			messagePart: "File foto kosong",
		},
		{
			name:        "too large",
			upload:      ImageUpload{ContentType: "image/png", Data: make([]byte, 11<<20)},
			status:      http.StatusRequestEntityTooLarge,
			code:        "File Too Large",
			messagePart: "Foto terlalu besar",
		},
		{
			name:        "not an image",
			upload:      ImageUpload{ContentType: "application/pdf", Data: []byte("%PDF")},
			status:      http.StatusBadRequest,
			code:        "Invalid File Type",
			messagePart: "hanya bisa membaca foto",
		},
		{
			name:        "english message",
			upload:      ImageUpload{ContentType: "text/plain", Data: []byte("hi"), Language: "en"},
			status:      http.StatusBadRequest,
			code:        "Invalid File Type",
			messagePart: "I can only read photos",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classifier := &fakeClassifier{}
			llm := &fakeLLM{}
			service := newEmotionService(t, classifier, llm)

			resp, soft, err := service.DetectEmotion(context.Background(), tc.upload)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Nil(t, soft)

			inputErr, ok := AsInputError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, inputErr.Status)
			assert.Equal(t, tc.code, inputErr.Code)
			assert.Contains(t, inputErr.Message, tc.messagePart)

			assert.Zero(t, classifier.calls, "classifier must not be called")
			assert.Empty(t, llm.calls, "model must not be called")
		})
	}
}

func TestEmotionService_Success(t *testing.T) {
	classifier := &fakeClassifier{result: entities.EmotionResult{Label: "tired", Confidence: 0.8149}}
	llm := &fakeLLM{replies: []string{
		"Coba tarik napas pelan.\nLalu minum air hangat.",
		"Kamu terlihat lelah malam ini.",
	}}
	service := newEmotionService(t, classifier, llm)

	resp, soft, err := service.DetectEmotion(context.Background(), ImageUpload{
		Data:        []byte{0xff, 0xd8, 0xff},
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)
	require.Nil(t, soft)
	require.NotNil(t, resp)

	assert.Equal(t, "tired", resp.Emotion)
	assert.Equal(t, 0.81, resp.Confidence)
	assert.Equal(t, "Coba tarik napas pelan. Lalu minum air hangat.", resp.Recommendation)
	assert.Equal(t, "Kamu terlihat lelah malam ini.", resp.Message)
	assert.Equal(t, "id", resp.Language)

	require.Len(t, llm.calls, 2)
	assert.Equal(t, 250, llm.calls[0].Options.MaxTokens)
	assert.InDelta(t, 0.7, llm.calls[0].Options.Temperature, 1e-6)
	assert.Equal(t, 150, llm.calls[1].Options.MaxTokens)
	assert.InDelta(t, 0.8, llm.calls[1].Options.Temperature, 1e-6)
	assert.Contains(t, llm.calls[0].Messages[1].Content, "tired")
}

func TestEmotionService_CompletionFallbacks(t *testing.T) {
	classifier := &fakeClassifier{result: entities.EmotionResult{Label: "sad", Confidence: 0.9}}
	llm := &fakeLLM{err: entities.NewProviderError("gemini", entities.FailureRateLimited, "status 429", nil)}
	service := newEmotionService(t, classifier, llm)

	resp, soft, err := service.DetectEmotion(context.Background(), ImageUpload{
		Data:        []byte("png"),
		ContentType: "image/png",
		Language:    "en",
	})
	require.NoError(t, err)
	require.Nil(t, soft)

	table := fallback.MustLoad()
	vars := fallback.Vars{Emotion: "sad", Confidence: 0.9}
	assert.Equal(t, table.Lookup(entities.FeatureEmotionRecommendation, entities.FailureRateLimited, entities.LanguageEnglish, vars), resp.Recommendation)
	assert.Equal(t, table.Lookup(entities.FeatureEmotionMessage, entities.FailureRateLimited, entities.LanguageEnglish, vars), resp.Message)
	assert.Equal(t, "sad", resp.Emotion)
	assert.Equal(t, "en", resp.Language)
}

func TestEmotionService_ClassificationFailure(t *testing.T) {
	testCases := []struct {
		name  string
		err   error
		label string
	}{
		{"connection", entities.NewProviderError("custom_vision", entities.FailureConnectionFailed, "refused", nil), "Connection Failed"},
		{"timeout", entities.NewProviderError("custom_vision", entities.FailureTimeout, "deadline", nil), "Request Timeout"},
		{"bad request", entities.NewProviderError("custom_vision", entities.FailureBadRequest, "status 400", nil), "Azure Vision Error"},
		{"no prediction", entities.NewProviderError("custom_vision", entities.FailureUnexpected, "empty", entities.ErrNoPrediction), "No emotion detected"},
		{"decode", entities.NewProviderError("custom_vision", entities.FailureInvalidJSON, "bad body", nil), "Request Failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &fakeLLM{}
			service := newEmotionService(t, &fakeClassifier{err: tc.err}, llm)

			resp, soft, err := service.DetectEmotion(context.Background(), ImageUpload{
				Data:        []byte("jpg"),
				ContentType: "image/jpeg",
			})
			require.NoError(t, err)
			assert.Nil(t, resp)
			require.NotNil(t, soft)

			assert.Equal(t, tc.label, soft.Error)
			assert.True(t, strings.HasPrefix(soft.Message, "Maaf, "))
			assert.Contains(t, soft.Message, "Aku tetap di sini untuk mendengarkan!")
			assert.Empty(t, llm.calls)
		})
	}
}

func TestClassificationLabel_ConnectionDetail(t *testing.T) {
	table := fallback.MustLoad()
	detail := table.Lookup(entities.FeatureEmotion, entities.FailureConnectionFailed, entities.LanguageIndonesian, fallback.Vars{})

	service := newEmotionService(t, &fakeClassifier{err: entities.NewProviderError("custom_vision", entities.FailureConnectionFailed, "refused", nil)}, &fakeLLM{})
	_, soft, err := service.DetectEmotion(context.Background(), ImageUpload{Data: []byte("x"), ContentType: "image/webp"})
	require.NoError(t, err)
	require.NotNil(t, soft)
	assert.Contains(t, soft.Message, detail)
}
