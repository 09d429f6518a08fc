package tts

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/audio"
)

// MockTextToSpeech returns silence sized to the text, for local development
type MockTextToSpeech struct {
	logger *zap.Logger
}

// Ensure MockTextToSpeech implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock synthesizer
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// SynthesizeAudio returns roughly 60ms of silence per word
func (m *MockTextToSpeech) SynthesizeAudio(ctx context.Context, text string, config repositories.VoiceConfig) ([]byte, error) {
	words := len(strings.Fields(text))
	if words == 0 {
		return nil, entities.NewProviderError("mock", entities.FailureBadRequest, "text cannot be empty", nil)
	}

	m.logger.Debug("Mock speech synthesized", zap.String("voice", config.Voice), zap.Int("words", words))
	return audio.Silence(time.Duration(words)*60*time.Millisecond, audio.Speech), nil
}
