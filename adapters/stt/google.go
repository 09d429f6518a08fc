package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/audio"
)

const (
	googleProvider  = "google_speech"
	defaultSTTModel = "latest_short"
)

// GoogleSpeechConfig holds configuration for the GoogleSpeechToText adapter
// Optional fields with defaults:
// - CredentialsFile: service account JSON; application default credentials when empty
// - Model: recognition model (default: "latest_short")
type GoogleSpeechConfig struct {
	CredentialsFile string
	Model           string
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client    *speech.Client
	recognize recognizeFunc
	model     string
	logger    *zap.Logger
}

// Ensure GoogleSpeechToText implements the SpeechToText interface
var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a Speech-to-Text client
func NewGoogleSpeechToText(ctx context.Context, config GoogleSpeechConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		if _, err := os.Stat(config.CredentialsFile); err != nil {
			return nil, fmt.Errorf("speech credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	model := config.Model
	if model == "" {
		model = defaultSTTModel
		logger.Info("Using default speech model", zap.String("model", model))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client: client,
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		model:  model,
		logger: logger,
	}, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// TranscribeFile reads the utterance stored at path and recognizes it in
// the configured language, allowing the alternative languages as well.
func (g *GoogleSpeechToText) TranscribeFile(ctx context.Context, path string, config repositories.AudioConfig) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", entities.NewProviderError(googleProvider, entities.FailureUnexpected, "failed to read audio", err)
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", entities.NewProviderError(googleProvider, entities.FailureBadRequest, err.Error(), err)
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 && encoding == speechpb.RecognitionConfig_LINEAR16 {
		if format, err := audio.ReadFormat(data); err == nil {
			sampleRate = format.SampleRate
		}
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encoding,
			SampleRateHertz:            int32(sampleRate),
			LanguageCode:               config.Language,
			AlternativeLanguageCodes:   config.AlternativeLanguages,
			Model:                      g.model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	}

	resp, err := g.recognize(ctx, req)
	if err != nil {
		g.logger.Error("Speech recognition failed", zap.Error(err))
		return "", classifySpeechError(err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alternatives := result.GetAlternatives(); len(alternatives) > 0 {
			if transcript := strings.TrimSpace(alternatives[0].GetTranscript()); transcript != "" {
				parts = append(parts, transcript)
			}
		}
	}

	if len(parts) == 0 {
		return "", entities.NewProviderError(googleProvider, entities.FailureUnexpected, "no speech could be recognized", entities.ErrSpeechNotRecognized)
	}

	transcript := strings.Join(parts, " ")
	g.logger.Info("Speech recognized",
		zap.Int("audioSize", len(data)),
		zap.String("language", config.Language),
		zap.Int("transcriptLength", len(transcript)))

	return transcript, nil
}

func classifySpeechError(err error) error {
	if errors.Is(err, context.Canceled) {
		return entities.NewProviderError(googleProvider, entities.FailureUnexpected, "recognition canceled", errors.Join(entities.ErrSpeechCanceled, err))
	}

	st, ok := status.FromError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return entities.NewProviderError(googleProvider, entities.FailureTimeout, err.Error(), err)
		}
		return entities.NewProviderError(googleProvider, entities.FailureUnexpected, err.Error(), err)
	}

	detail := fmt.Sprintf("%s: %s", st.Code(), st.Message())
	switch st.Code() {
	case codes.Canceled:
		return entities.NewProviderError(googleProvider, entities.FailureUnexpected, detail, errors.Join(entities.ErrSpeechCanceled, err))
	case codes.DeadlineExceeded:
		return entities.NewProviderError(googleProvider, entities.FailureTimeout, detail, err)
	case codes.Unavailable:
		return entities.NewProviderError(googleProvider, entities.FailureConnectionFailed, detail, err)
	case codes.ResourceExhausted:
		return entities.NewProviderError(googleProvider, entities.FailureRateLimited, detail, err)
	case codes.InvalidArgument:
		return entities.NewProviderError(googleProvider, entities.FailureBadRequest, detail, err)
	default:
		return entities.NewProviderError(googleProvider, entities.FailureUnexpected, detail, err)
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "", "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
