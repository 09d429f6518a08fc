package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/internal/auth"
	"github.com/satriahrh/temantidur/server/internal/config"
)

func TestNewVerifier(t *testing.T) {
	logger := zaptest.NewLogger(t)

	verifier, err := newVerifier(&config.Config{Auth: config.AuthConfig{Mode: config.AuthNone}}, logger)
	require.NoError(t, err)
	assert.Nil(t, verifier)

	verifier, err = newVerifier(&config.Config{Auth: config.AuthConfig{
		Mode:      config.AuthHMAC,
		JWTSecret: "a-development-secret-for-tests",
	}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &auth.HMACVerifier{}, verifier)

	_, err = newVerifier(&config.Config{Auth: config.AuthConfig{Mode: config.AuthHMAC, JWTSecret: "short"}}, logger)
	assert.Error(t, err)

	verifier, err = newVerifier(&config.Config{Auth: config.AuthConfig{
		Mode:              config.AuthFirebase,
		FirebaseProjectID: "temantidur-dev",
	}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &auth.FirebaseVerifier{}, verifier)
}

func TestMockBackends(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := &config.Config{
		LLM:    config.LLMConfig{Backend: config.BackendMock},
		Vision: config.VisionConfig{Backend: config.BackendMock},
		STT:    config.STTConfig{Backend: config.BackendMock},
		TTS:    config.TTSConfig{Backend: config.BackendMock},
	}

	llmService, err := newLLM(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, llmService)

	classifier, err := newClassifier(cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, classifier)

	speechToText, closeSTT, err := newSpeechToText(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, speechToText)
	closeSTT()

	textToSpeech, err := newTextToSpeech(cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, textToSpeech)
}

func TestVoiceNames(t *testing.T) {
	cfg := &config.Config{Voice: config.VoiceConfig{Voices: map[string]string{
		"id": "id-ID-ArdiNeural",
		"en": "en-US-GuyNeural",
	}}}

	voices := voiceNames(cfg)
	assert.Equal(t, "id-ID-ArdiNeural", voices[entities.LanguageIndonesian])
	assert.Equal(t, "en-US-GuyNeural", voices[entities.LanguageEnglish])
}
