package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/adapters/llm"
	"github.com/satriahrh/temantidur/server/adapters/stt"
	"github.com/satriahrh/temantidur/server/adapters/tts"
	"github.com/satriahrh/temantidur/server/adapters/vision"
	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/auth"
	"github.com/satriahrh/temantidur/server/internal/config"
)

func newLLM(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.LargeLanguageModel, error) {
	switch cfg.LLM.Backend {
	case config.BackendGemini:
		client, err := llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:         cfg.LLM.Gemini.APIKey,
			Model:          cfg.LLM.Gemini.Model,
			TopK:           cfg.LLM.Gemini.TopK,
			TimeoutSeconds: cfg.LLM.Gemini.TimeoutSeconds,
			BaseURL:        cfg.LLM.Gemini.BaseURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	case config.BackendAzure:
		client, err := llm.NewAzureOpenAI(llm.AzureOpenAIConfig{
			Endpoint:   cfg.LLM.Azure.Endpoint,
			APIKey:     cfg.LLM.Azure.APIKey,
			Deployment: cfg.LLM.Azure.Deployment,
			APIVersion: cfg.LLM.Azure.APIVersion,
			Timeout:    cfg.LLM.Azure.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
		}
		return client, nil
	default:
		logger.Warn("Using mock LLM")
		return llm.NewMockLLM(logger), nil
	}
}

func newClassifier(cfg *config.Config, logger *zap.Logger) (repositories.EmotionClassifier, error) {
	if cfg.Vision.Backend != config.BackendCustomVision {
		logger.Warn("Using mock emotion classifier")
		return vision.NewMockClassifier(logger), nil
	}

	classifier, err := vision.NewCustomVision(vision.CustomVisionConfig{
		PredictionURL: cfg.Vision.PredictionURL,
		PredictionKey: cfg.Vision.PredictionKey,
		Timeout:       cfg.Vision.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Custom Vision client: %w", err)
	}
	return classifier, nil
}

// newSpeechToText also returns a func releasing the client's connection
func newSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	if cfg.STT.Backend != config.BackendGoogle {
		logger.Warn("Using mock speech to text")
		return stt.NewMockSpeechToText(logger), func() {}, nil
	}

	client, err := stt.NewGoogleSpeechToText(ctx, stt.GoogleSpeechConfig{
		CredentialsFile: cfg.STT.CredentialsFile,
		Model:           cfg.STT.Model,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Google Speech client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Google Speech client", zap.Error(err))
		}
	}, nil
}

func newTextToSpeech(cfg *config.Config, logger *zap.Logger) (repositories.TextToSpeech, error) {
	if cfg.TTS.Backend != config.BackendElevenLabs {
		logger.Warn("Using mock text to speech")
		return tts.NewMockTextToSpeech(logger), nil
	}

	client, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:       cfg.TTS.APIKey,
		APIBaseURL:   cfg.TTS.APIBaseURL,
		VoiceID:      cfg.TTS.VoiceID,
		Voices:       cfg.TTS.Voices,
		ModelID:      cfg.TTS.ModelID,
		OutputFormat: cfg.TTS.OutputFormat,
		Timeout:      cfg.TTS.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Eleven Labs client: %w", err)
	}
	return client, nil
}

// newVerifier returns nil when authentication is disabled
func newVerifier(cfg *config.Config, logger *zap.Logger) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthNone:
		return nil, nil
	case config.AuthFirebase:
		verifier, err := auth.NewFirebaseVerifier(auth.FirebaseConfig{
			ProjectID: cfg.Auth.FirebaseProjectID,
			CertsURL:  cfg.Auth.FirebaseCertsURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firebase verifier: %w", err)
		}
		return verifier, nil
	default:
		verifier, err := auth.NewHMACVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		return verifier, nil
	}
}

// voiceNames maps the configured language codes to synthesis voices
func voiceNames(cfg *config.Config) map[entities.Language]string {
	voices := make(map[entities.Language]string, len(cfg.Voice.Voices))
	for code, voice := range cfg.Voice.Voices {
		voices[entities.ParseLanguage(code)] = voice
	}
	return voices
}
