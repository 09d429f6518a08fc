package stt

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
}

// Ensure MockSpeechToText implements the SpeechToText interface
var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeFile returns a canned transcript chosen by the size of the file
func (s *MockSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", entities.NewProviderError("mock", entities.FailureUnexpected, "failed to read audio", err)
	}

	s.logger.Info("Processing speech-to-text",
		zap.Int64("audioSize", info.Size()),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	// Mock transcription based on audio size
	switch {
	case info.Size() > 64000:
		return "Aku lagi banyak pikiran soal ujian besok, jadi susah tidur.", nil
	case info.Size() > 16000:
		return "Malam ini rasanya sepi banget.", nil
	case info.Size() > 44:
		return "Halo", nil
	default:
		return "", entities.NewProviderError("mock", entities.FailureUnexpected, "no speech could be recognized", entities.ErrSpeechNotRecognized)
	}
}
