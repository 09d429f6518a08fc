package vision

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

// emotions the mock cycles through, chosen by image size
var mockEmotions = []string{"happy", "sad", "tired", "anxious", "calm"}

// MockClassifier is a deterministic EmotionClassifier for local development
type MockClassifier struct {
	logger *zap.Logger
}

// Ensure MockClassifier implements the EmotionClassifier interface
var _ repositories.EmotionClassifier = (*MockClassifier)(nil)

// NewMockClassifier creates a new mock classifier
func NewMockClassifier(logger *zap.Logger) *MockClassifier {
	return &MockClassifier{logger: logger}
}

// ClassifyImage picks an emotion from the image length
func (m *MockClassifier) ClassifyImage(ctx context.Context, image []byte) (entities.EmotionResult, error) {
	if len(image) == 0 {
		return entities.EmotionResult{}, entities.NewProviderError("mock", entities.FailureUnexpected, "empty image", entities.ErrNoPrediction)
	}

	label := mockEmotions[len(image)%len(mockEmotions)]
	m.logger.Debug("Mock emotion classified", zap.String("emotion", label), zap.Int("bytes", len(image)))
	return entities.EmotionResult{Label: label, Confidence: 0.87}, nil
}
