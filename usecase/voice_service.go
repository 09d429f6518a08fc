package usecase

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/fallback"
	"github.com/satriahrh/temantidur/server/internal/language"
	"github.com/satriahrh/temantidur/server/internal/persona"
	"github.com/satriahrh/temantidur/server/internal/textutil"
)

const (
	voiceProvider = "voice"

	// FallbackUserText stands in for the transcript when a voice turn failed
	FallbackUserText = "Error processing audio"

	greetingMaxLength = 20
)

var greetingTokens = map[string]struct{}{
	"hai": {}, "halo": {}, "hello": {}, "hi": {}, "hei": {},
}

// AudioUpload is one recorded utterance
type AudioUpload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// VoiceResponse is the spoken answer to an utterance
type VoiceResponse struct {
	UserText    string `json:"user_text"`
	AIText      string `json:"ai_text"`
	Audio       []byte `json:"-"`
	AudioFormat string `json:"audio_format"`
}

// VoiceConfig holds configuration for the VoiceService
// Optional fields with defaults:
// - TempDir: directory for uploaded utterances (default: os.TempDir())
// - Voices: synthesis voice per language (default: id-ID-GadisNeural, en-US-JennyNeural)
type VoiceConfig struct {
	TempDir string
	Voices  map[entities.Language]string
}

// DefaultVoices are the synthesis voices used when none are configured
var DefaultVoices = map[entities.Language]string{
	entities.LanguageIndonesian: "id-ID-GadisNeural",
	entities.LanguageEnglish:    "en-US-JennyNeural",
}

// VoiceService orchestrates the speech to speech flow
type VoiceService struct {
	speechToText repositories.SpeechToText
	textToSpeech repositories.TextToSpeech
	llm          repositories.LargeLanguageModel
	prompts      *persona.Builder
	fallbacks    *fallback.Table
	tempDir      string
	voices       map[entities.Language]string
	logger       *zap.Logger
}

// NewVoiceService creates a new voice service
func NewVoiceService(
	stt repositories.SpeechToText,
	tts repositories.TextToSpeech,
	llm repositories.LargeLanguageModel,
	prompts *persona.Builder,
	fallbacks *fallback.Table,
	config VoiceConfig,
	logger *zap.Logger,
) *VoiceService {
	tempDir := config.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	voices := make(map[entities.Language]string, len(DefaultVoices))
	for lang, voice := range DefaultVoices {
		voices[lang] = voice
	}
	for lang, voice := range config.Voices {
		if voice != "" {
			voices[lang] = voice
		}
	}

	return &VoiceService{
		speechToText: stt,
		textToSpeech: tts,
		llm:          llm,
		prompts:      prompts,
		fallbacks:    fallbacks,
		tempDir:      tempDir,
		voices:       voices,
		logger:       logger,
	}
}

// IsWAVUpload reports whether the upload is declared as WAV by content
// type or file extension
func IsWAVUpload(contentType, filename string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".wav")
}

// HandleVoiceChat transcribes the utterance, answers it and speaks the
// answer. Provider failures are answered with a spoken apology; an error
// is returned only for a rejected upload or when the apology cannot be
// synthesized either.
func (s *VoiceService) HandleVoiceChat(ctx context.Context, upload AudioUpload) (*VoiceResponse, error) {
	if !IsWAVUpload(upload.ContentType, upload.Filename) {
		return nil, &InputError{
			Status:  http.StatusBadRequest,
			Code:    "Unsupported Audio",
			Message: s.fallbacks.Notice(entities.FeatureVoice, fallback.NoticeUnsupportedAudio, entities.LanguageIndonesian, fallback.Vars{}),
		}
	}

	response, err := s.converse(ctx, upload.Data)
	if err == nil {
		return response, nil
	}

	category := entities.CategoryOf(err)
	s.logger.Warn("Voice chat failed, answering with fallback",
		zap.String("feature", string(entities.FeatureVoice)),
		zap.String("category", string(category)),
		zap.String("detail", providerDetail(err)))

	apology := s.fallbacks.Lookup(entities.FeatureVoice, category, entities.LanguageIndonesian, fallback.Vars{})
	audio, synthErr := s.textToSpeech.SynthesizeAudio(ctx, apology, repositories.VoiceConfig{
		Voice:    s.voices[entities.LanguageIndonesian],
		Language: entities.LanguageIndonesian.Locale(),
	})
	if synthErr != nil {
		s.logger.Error("Fallback synthesis failed", zap.Error(synthErr))
		return nil, fmt.Errorf("failed to synthesize fallback reply: %w", synthErr)
	}

	return &VoiceResponse{
		UserText:    FallbackUserText,
		AIText:      apology,
		Audio:       audio,
		AudioFormat: "wav",
	}, nil
}

func (s *VoiceService) converse(ctx context.Context, data []byte) (*VoiceResponse, error) {
	turn := entities.VoiceTurn{AudioBytes: data}
	if len(turn.AudioBytes) == 0 {
		return nil, entities.NewProviderError(voiceProvider, entities.FailureBadRequest, "empty audio upload", nil)
	}

	// Step 1: Speech to Text
	transcript, err := s.transcribe(ctx, turn.AudioBytes)
	if err != nil {
		return nil, err
	}
	turn.Transcript = transcript
	turn.IsFirstMessage = isGreeting(transcript)

	lang := language.Detect(turn.Transcript)

	s.logger.Info("Transcription completed",
		zap.Int("transcriptLength", len(turn.Transcript)),
		zap.String("language", lang.String()),
		zap.Bool("firstMessage", turn.IsFirstMessage))

	// Step 2: Generate the spoken reply
	messages := []repositories.ChatMessage{s.prompts.SystemPrompt(entities.FeatureVoice, lang, persona.Vars{})}
	if turn.IsFirstMessage {
		messages = append(messages, s.prompts.IntroTurn(entities.FeatureVoice, lang))
	}
	messages = append(messages, repositories.ChatMessage{Role: repositories.UserRole, Content: turn.Transcript})

	reply, err := s.llm.Complete(ctx, messages, repositories.CompletionOptions{
		MaxTokens:   150,
		Temperature: 0.9,
		TopP:        1.0,
	})
	if err != nil {
		return nil, err
	}

	reply = textutil.CleanForSpeech(reply)
	if reply == "" {
		return nil, entities.NewProviderError(voiceProvider, entities.FailureUnexpected, "reply has nothing to speak", nil)
	}

	// Step 3: Text to Speech
	audio, err := s.textToSpeech.SynthesizeAudio(ctx, reply, repositories.VoiceConfig{
		Voice:    s.voices[lang],
		Language: lang.Locale(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("TTS completed", zap.Int("audioSize", len(audio)))

	return &VoiceResponse{
		UserText:    turn.Transcript,
		AIText:      reply,
		Audio:       audio,
		AudioFormat: "wav",
	}, nil
}

// transcribe stores the utterance in a temporary file for the recognizer.
// The file is removed before transcribe returns.
func (s *VoiceService) transcribe(ctx context.Context, data []byte) (string, error) {
	file, err := os.CreateTemp(s.tempDir, "utterance-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := file.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove temp file", zap.String("path", path), zap.Error(err))
		}
	}()

	if _, err := file.Write(data); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return s.speechToText.TranscribeFile(ctx, path, repositories.AudioConfig{
		Encoding:             "LINEAR16",
		Language:             entities.LanguageIndonesian.Locale(),
		AlternativeLanguages: []string{entities.LanguageEnglish.Locale()},
	})
}

// isGreeting reports whether a transcript looks like an opening greeting
func isGreeting(transcript string) bool {
	trimmed := strings.TrimSpace(transcript)
	if len([]rune(trimmed)) >= greetingMaxLength {
		return false
	}
	for _, token := range language.Tokenize(trimmed) {
		if _, ok := greetingTokens[token]; ok {
			return true
		}
	}
	return false
}
