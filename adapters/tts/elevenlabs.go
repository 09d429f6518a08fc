package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/audio"
)

const (
	elevenLabsProvider  = "elevenlabs"
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultOutputFormat = "pcm_16000"              // raw PCM, wrapped into WAV locally
	defaultModelID      = "eleven_multilingual_v2" // Speaks Indonesian and English
	defaultStability    = 0.5                      // Default voice stability
	defaultClarity      = 0.75                     // Default voice clarity/similarity_boost
	defaultHTTPTimeout  = 60 * time.Second
	maxAudioBytes       = 20 << 20
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: The voice ID used when a voice name has no mapping (default: "21m00Tcm4TlvDq8ikWAM" - Rachel voice)
// - Voices: voice name (e.g. "id-ID-GadisNeural") to Eleven Labs voice ID
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - OutputFormat: a pcm_<rate> format (default: "pcm_16000")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
// - Timeout: HTTP client timeout (default: 60s)
type ElevenLabsConfig struct {
	APIKey       string            // Required: Your Eleven Labs API key
	APIBaseURL   string            // Optional: The base URL for the Eleven Labs API
	VoiceID      string            // Optional: The fallback voice ID
	Voices       map[string]string // Optional: voice name to voice ID
	ModelID      string            // Optional: The model ID to use
	OutputFormat string            // Optional: The PCM output format
	Stability    float64           // Optional: Voice stability value between 0 and 1
	Clarity      float64           // Optional: Voice clarity/similarity boost value between 0 and 1
	Timeout      time.Duration     // Optional: HTTP client timeout
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	voices       map[string]string
	modelID      string
	outputFormat string
	format       audio.Format
	stability    float64
	clarity      float64
	client       *http.Client
	logger       *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	// Validate stability is in the valid range
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	// Validate clarity is in the valid range
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.OutputFormat != "" {
		if _, err := pcmSampleRate(config.OutputFormat); err != nil {
			return err
		}
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	// Validate required configuration
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	// Apply defaults where needed
	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
		logger.Info("Using default output format", zap.String("outputFormat", outputFormat))
	}
	sampleRate, _ := pcmSampleRate(outputFormat)

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
		logger.Info("Using default stability", zap.Float64("stability", stability))
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
		logger.Info("Using default clarity", zap.Float64("clarity", clarity))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	voices := make(map[string]string, len(config.Voices))
	for name, id := range config.Voices {
		voices[strings.ToLower(name)] = id
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   strings.TrimRight(apiBaseURL, "/"),
		voiceID:      voiceID,
		voices:       voices,
		modelID:      modelID,
		outputFormat: outputFormat,
		format:       audio.Format{SampleRate: sampleRate, Channels: 1, BytesPerSample: 2},
		stability:    stability,
		clarity:      clarity,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// SynthesizeAudio converts text into a mono 16-bit PCM WAV utterance
func (e *ElevenLabsTTS) SynthesizeAudio(ctx context.Context, text string, config repositories.VoiceConfig) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureBadRequest, "text cannot be empty", nil)
	}

	voiceID := e.resolveVoice(config.Voice)

	e.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("voice", config.Voice),
		zap.String("voiceID", voiceID),
		zap.String("modelID", e.modelID))

	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		LanguageCode:           languageCode(config.Language),
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureUnexpected, "failed to marshal request", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s&enable_logging=false",
		e.apiBaseURL, url.PathEscape(voiceID), url.QueryEscape(e.outputFormat))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureUnexpected, "failed to create request", err)
	}
	httpReq.Header.Set("Accept", "audio/pcm")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.logger.Error("Failed to execute HTTP request", zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureUnexpected, "synthesis canceled", errors.Join(entities.ErrSpeechCanceled, err))
		}
		return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureConnectionFailed, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))

		detail := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
		category := entities.FailureUnexpected
		if resp.StatusCode == http.StatusTooManyRequests {
			category = entities.FailureRateLimited
		}
		return nil, entities.NewProviderError(elevenLabsProvider, category, detail, nil)
	}

	pcm, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureConnectionFailed, "failed to read audio", err)
	}
	if len(pcm) == 0 {
		return nil, entities.NewProviderError(elevenLabsProvider, entities.FailureUnexpected, "empty audio returned", nil)
	}

	e.logger.Info("Speech synthesized",
		zap.Int("pcmBytes", len(pcm)),
		zap.Int("sampleRate", e.format.SampleRate))

	return audio.PCMToWAV(pcm, e.format), nil
}

// resolveVoice maps a voice name to an Eleven Labs voice ID. Unknown
// names are used as IDs when they look like one.
func (e *ElevenLabsTTS) resolveVoice(name string) string {
	if id, ok := e.voices[strings.ToLower(name)]; ok {
		return id
	}
	if name != "" && !strings.Contains(name, "-") {
		return name
	}
	return e.voiceID
}

// languageCode turns "id-ID" into the ISO 639-1 code Eleven Labs expects
func languageCode(locale string) string {
	code, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(code)
}

func pcmSampleRate(format string) (int, error) {
	rate, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return 0, fmt.Errorf("output format must be pcm_<rate>, got %q", format)
	}
	n, err := strconv.Atoi(rate)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid sample rate in output format %q", format)
	}
	return n, nil
}
