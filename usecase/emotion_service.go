package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/fallback"
	"github.com/satriahrh/temantidur/server/internal/persona"
	"github.com/satriahrh/temantidur/server/internal/textutil"
)

// MaxImageBytes is the largest image accepted by DetectEmotion
const MaxImageBytes = 10 << 20

// ImageUpload is an image submitted for emotion detection
type ImageUpload struct {
	Data        []byte
	ContentType string
	Language    string
}

// EmotionResponse is the result of a successful detection
type EmotionResponse struct {
	Emotion        string  `json:"emotion"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
	Message        string  `json:"message"`
	Language       string  `json:"language"`
}

// EmotionService detects an emotion in an image and responds to it
type EmotionService struct {
	classifier repositories.EmotionClassifier
	llm        repositories.LargeLanguageModel
	prompts    *persona.Builder
	fallbacks  *fallback.Table
	logger     *zap.Logger
}

// NewEmotionService creates a new emotion service
func NewEmotionService(
	classifier repositories.EmotionClassifier,
	llm repositories.LargeLanguageModel,
	prompts *persona.Builder,
	fallbacks *fallback.Table,
	logger *zap.Logger,
) *EmotionService {
	return &EmotionService{
		classifier: classifier,
		llm:        llm,
		prompts:    prompts,
		fallbacks:  fallbacks,
		logger:     logger,
	}
}

// DetectEmotion validates the upload, classifies it and asks the model for
// a recommendation and a short message. Exactly one of the response and the
// soft failure is set when err is nil. err is always an *InputError.
func (s *EmotionService) DetectEmotion(ctx context.Context, upload ImageUpload) (*EmotionResponse, *SoftFailure, error) {
	lang := entities.ParseLanguage(upload.Language)

	if err := s.validate(upload, lang); err != nil {
		s.logger.Info("Rejected emotion upload",
			zap.String("contentType", upload.ContentType),
			zap.Int("size", len(upload.Data)),
			zap.Error(err))
		return nil, nil, err
	}

	result, err := s.classifier.ClassifyImage(ctx, upload.Data)
	if err != nil {
		category := entities.CategoryOf(err)
		s.logger.Warn("Emotion classification failed",
			zap.String("feature", string(entities.FeatureEmotion)),
			zap.String("category", string(category)),
			zap.String("detail", providerDetail(err)))

		detail := s.fallbacks.Lookup(entities.FeatureEmotion, category, lang, fallback.Vars{})
		return nil, &SoftFailure{
			Error:   classificationLabel(err),
			Message: s.fallbacks.Notice(entities.FeatureEmotion, fallback.NoticeReassurance, lang, fallback.Vars{Detail: detail}),
		}, nil
	}

	s.logger.Info("Emotion detected",
		zap.String("emotion", result.Label),
		zap.Float64("confidence", result.Confidence),
		zap.String("language", lang.String()))

	vars := persona.Vars{Emotion: result.Label, Confidence: result.Confidence}
	fallbackVars := fallback.Vars{Emotion: result.Label, Confidence: result.Confidence}

	recommendation := s.generate(ctx, entities.FeatureEmotionRecommendation, lang, vars, fallbackVars,
		repositories.CompletionOptions{MaxTokens: 250, Temperature: 0.7, TopP: 1.0})
	message := s.generate(ctx, entities.FeatureEmotionMessage, lang, vars, fallbackVars,
		repositories.CompletionOptions{MaxTokens: 150, Temperature: 0.8, TopP: 1.0})

	return &EmotionResponse{
		Emotion:        result.Label,
		Confidence:     result.RoundedConfidence(),
		Recommendation: recommendation,
		Message:        message,
		Language:       lang.String(),
	}, nil, nil
}

func (s *EmotionService) validate(upload ImageUpload, lang entities.Language) error {
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		return &InputError{
			Status:  http.StatusBadRequest,
			Code:    "Invalid File Type",
			Message: s.fallbacks.Notice(entities.FeatureEmotion, fallback.NoticeInvalidFileType, lang, fallback.Vars{}),
		}
	}
	if len(upload.Data) > MaxImageBytes {
		return &InputError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "File Too Large",
			Message: s.fallbacks.Notice(entities.FeatureEmotion, fallback.NoticeFileTooLarge, lang, fallback.Vars{}),
		}
	}
	if len(upload.Data) == 0 {
		return &InputError{
			Status:  http.StatusBadRequest,
			Code:    "Empty File",
			Message: s.fallbacks.Notice(entities.FeatureEmotion, fallback.NoticeEmptyFile, lang, fallback.Vars{}),
		}
	}
	return nil
}

// generate runs one persona completion about the detected emotion and
// falls back to the feature's canned text on failure.
func (s *EmotionService) generate(
	ctx context.Context,
	feature entities.Feature,
	lang entities.Language,
	vars persona.Vars,
	fallbackVars fallback.Vars,
	options repositories.CompletionOptions,
) string {
	messages := []repositories.ChatMessage{
		s.prompts.SystemPrompt(feature, lang, vars),
		s.prompts.UserPrompt(feature, lang, vars),
	}

	text, err := s.llm.Complete(ctx, messages, options)
	if err != nil {
		category := entities.CategoryOf(err)
		s.logger.Warn("Emotion completion failed, using fallback",
			zap.String("feature", string(feature)),
			zap.String("category", string(category)),
			zap.String("detail", providerDetail(err)))
		return s.fallbacks.Lookup(feature, category, lang, fallbackVars)
	}

	return textutil.StripNewlines(text)
}

// classificationLabel is the short error label of a soft classification failure
func classificationLabel(err error) string {
	switch entities.CategoryOf(err) {
	case entities.FailureConnectionFailed:
		return "Connection Failed"
	case entities.FailureTimeout:
		return "Request Timeout"
	case entities.FailureBadRequest, entities.FailureRateLimited:
		return "Azure Vision Error"
	}
	if errors.Is(err, entities.ErrNoPrediction) {
		return "No emotion detected"
	}
	return "Request Failed"
}
