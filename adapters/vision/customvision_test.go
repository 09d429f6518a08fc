package vision

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/temantidur/server/domain/entities"
)

func newTestClassifier(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *CustomVision {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	classifier, err := NewCustomVision(CustomVisionConfig{
		PredictionURL: server.URL + "/customvision/v3.0/Prediction/project/classify/iterations/emotions/image",
		PredictionKey: "prediction-key",
		Timeout:       timeout,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return classifier
}

func TestCustomVision_ClassifyImage(t *testing.T) {
	classifier := newTestClassifier(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "prediction-key", r.Header.Get("Prediction-Key"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("jpeg-bytes"), body)

		_, _ = w.Write([]byte(`{"predictions":[{"tagName":"sad","probability":0.4},{"tagName":"tired","probability":0.81}]}`))
	})

	result, err := classifier.ClassifyImage(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "tired", result.Label)
	assert.Equal(t, 0.81, result.RoundedConfidence())
}

func TestTopPrediction_FirstWinsTies(t *testing.T) {
	top, ok := topPrediction([]prediction{
		{TagName: "calm", Probability: 0.5},
		{TagName: "happy", Probability: 0.5},
		{TagName: "sad", Probability: 0.1},
	})
	require.True(t, ok)
	assert.Equal(t, "calm", top.TagName)

	_, ok = topPrediction(nil)
	assert.False(t, ok)
}

func TestCustomVision_Failures(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantCategory entities.FailureCategory
		wantCause    error
	}{
		{"rejected", http.StatusBadRequest, `{"code":"BadRequestImageFormat"}`, entities.FailureBadRequest, nil},
		{"rate limited", http.StatusTooManyRequests, `{}`, entities.FailureRateLimited, nil},
		{"no predictions", http.StatusOK, `{"predictions":[]}`, entities.FailureUnexpected, entities.ErrNoPrediction},
		{"garbage", http.StatusOK, `<html>`, entities.FailureInvalidJSON, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := newTestClassifier(t, 0, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := classifier.ClassifyImage(context.Background(), []byte("img"))
			require.Error(t, err)
			assert.Equal(t, tt.wantCategory, entities.CategoryOf(err))
			if tt.wantCause != nil {
				assert.True(t, errors.Is(err, tt.wantCause))
			}
		})
	}
}

func TestCustomVision_Timeout(t *testing.T) {
	release := make(chan struct{})
	classifier := newTestClassifier(t, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := classifier.ClassifyImage(context.Background(), []byte("img"))
	assert.Equal(t, entities.FailureTimeout, entities.CategoryOf(err))
}

func TestCustomVision_ConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	predictionURL := server.URL
	server.Close()

	classifier, err := NewCustomVision(CustomVisionConfig{PredictionURL: predictionURL, PredictionKey: "k"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = classifier.ClassifyImage(context.Background(), []byte("img"))
	assert.Equal(t, entities.FailureConnectionFailed, entities.CategoryOf(err))
}

func TestValidateCustomVisionConfig(t *testing.T) {
	assert.Error(t, ValidateCustomVisionConfig(CustomVisionConfig{}))
	assert.Error(t, ValidateCustomVisionConfig(CustomVisionConfig{PredictionURL: "https://example.com/predict"}))
	assert.NoError(t, ValidateCustomVisionConfig(CustomVisionConfig{PredictionURL: "https://example.com/predict", PredictionKey: "k"}))
}

func TestMockClassifier(t *testing.T) {
	mock := NewMockClassifier(zaptest.NewLogger(t))

	result, err := mock.ClassifyImage(context.Background(), []byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, "tired", result.Label)

	_, err = mock.ClassifyImage(context.Background(), nil)
	assert.True(t, errors.Is(err, entities.ErrNoPrediction))
}
