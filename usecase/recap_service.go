package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
	"github.com/satriahrh/temantidur/server/internal/fallback"
	"github.com/satriahrh/temantidur/server/internal/language"
	"github.com/satriahrh/temantidur/server/internal/persona"
	"github.com/satriahrh/temantidur/server/internal/textutil"
)

const (
	// RecapDateLayout is the DD.MM.YYYY layout clients send dates in
	RecapDateLayout         = "02.01.2006"
	recapDateLayoutUnpadded = "2.1.2006"

	maxRecapSentences = 6
)

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// RecapRequest asks for a summary of a day's conversation
type RecapRequest struct {
	Date     string                     `json:"date"`
	Messages []repositories.ChatMessage `json:"messages"`
}

// RecapResponse is a short diary style summary
type RecapResponse struct {
	Recap         string `json:"recap"`
	Date          string `json:"date"`
	FormattedDate string `json:"formatted_date"`
	Language      string `json:"language"`
	MessageCount  int    `json:"message_count"`
}

// RecapService summarizes a conversation
type RecapService struct {
	llm       repositories.LargeLanguageModel
	prompts   *persona.Builder
	fallbacks *fallback.Table
	logger    *zap.Logger
}

// NewRecapService creates a new recap service
func NewRecapService(llm repositories.LargeLanguageModel, prompts *persona.Builder, fallbacks *fallback.Table, logger *zap.Logger) *RecapService {
	return &RecapService{
		llm:       llm,
		prompts:   prompts,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Recap summarizes the conversation in five or six sentences. Exactly one
// of the results is non-nil.
func (s *RecapService) Recap(ctx context.Context, req RecapRequest) (*RecapResponse, *SoftFailure) {
	turns := make([]repositories.ChatMessage, 0, len(req.Messages))
	for _, msg := range conversationTurns(req.Messages) {
		content := textutil.CleanText(msg.Content)
		if content == "" {
			continue
		}
		turns = append(turns, repositories.ChatMessage{Role: msg.Role, Content: content})
	}

	if len(turns) == 0 {
		return nil, &SoftFailure{
			Error: s.fallbacks.Notice(entities.FeatureRecap, fallback.NoticeNoMessages, entities.LanguageIndonesian, fallback.Vars{}),
		}
	}

	lang := language.Detect(userContent(turns))
	formattedDate := FormatRecapDate(req.Date, lang)

	vars := persona.Vars{
		Date:         formattedDate,
		Conversation: s.prompts.Transcript(turns, lang),
	}
	messages := []repositories.ChatMessage{
		s.prompts.SystemPrompt(entities.FeatureRecap, lang, vars),
		s.prompts.UserPrompt(entities.FeatureRecap, lang, vars),
	}

	text, err := s.llm.Complete(ctx, messages, repositories.CompletionOptions{
		MaxTokens:   200,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err == nil {
		text = textutil.EnsureCompleteSentences(text, maxRecapSentences)
		if text == "" {
			err = entities.NewProviderError("recap", entities.FailureUnexpected, "recap has no complete sentence", nil)
		}
	}
	if err != nil {
		category := entities.CategoryOf(err)
		s.logger.Warn("Recap failed, answering with fallback",
			zap.String("feature", string(entities.FeatureRecap)),
			zap.String("category", string(category)),
			zap.String("language", lang.String()),
			zap.String("detail", providerDetail(err)))
		return nil, &SoftFailure{Error: s.fallbacks.Lookup(entities.FeatureRecap, category, lang, fallback.Vars{})}
	}

	s.logger.Info("Recap generated",
		zap.String("language", lang.String()),
		zap.Int("messageCount", len(turns)))

	return &RecapResponse{
		Recap:         text,
		Date:          req.Date,
		FormattedDate: formattedDate,
		Language:      lang.String(),
		MessageCount:  len(turns),
	}, nil
}

// MalformedRequest answers a recap request whose body could not be decoded
func (s *RecapService) MalformedRequest() *SoftFailure {
	return &SoftFailure{Error: s.fallbacks.Lookup(entities.FeatureRecap, entities.FailureInvalidJSON, entities.LanguageIndonesian, fallback.Vars{})}
}

// FormatRecapDate renders a DD.MM.YYYY date for lang. A date that does not
// parse is returned unchanged.
func FormatRecapDate(date string, lang entities.Language) string {
	trimmed := strings.TrimSpace(date)
	parsed, err := time.Parse(RecapDateLayout, trimmed)
	if err != nil {
		// Day and month may come without a leading zero
		parsed, err = time.Parse(recapDateLayoutUnpadded, trimmed)
		if err != nil {
			return date
		}
	}
	if lang == entities.LanguageEnglish {
		return parsed.Format("January 02, 2006")
	}
	return fmt.Sprintf("%d %s %d", parsed.Day(), indonesianMonths[parsed.Month()-1], parsed.Year())
}
