package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

func TestNewBuilder(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	for _, lang := range entities.Languages {
		for _, feature := range systemFeatures {
			msg := b.SystemPrompt(feature, lang, Vars{Date: "June 11, 2025"})
			assert.Equal(t, repositories.SystemRole, msg.Role)
			assert.NotEmpty(t, msg.Content, "system %s/%s", feature, lang)
		}
		for _, feature := range introFeatures {
			msg := b.IntroTurn(feature, lang)
			assert.Equal(t, repositories.AssistantRole, msg.Role)
			assert.NotEmpty(t, msg.Content, "intro %s/%s", feature, lang)
		}
	}
}

func TestSystemPrompt_Chat(t *testing.T) {
	b := MustNewBuilder()

	id := b.SystemPrompt(entities.FeatureChat, entities.LanguageIndonesian, Vars{})
	assert.True(t, strings.HasPrefix(id.Content, "Kamu adalah TemanTidur"))

	en := b.SystemPrompt(entities.FeatureChat, entities.LanguageEnglish, Vars{})
	assert.True(t, strings.HasPrefix(en.Content, "You are SleepBuddy"))
	assert.Contains(t, en.Content, "Respond in English")
}

func TestSystemPrompt_VoiceForbidsEmoji(t *testing.T) {
	b := MustNewBuilder()

	assert.Contains(t, b.SystemPrompt(entities.FeatureVoice, entities.LanguageIndonesian, Vars{}).Content, "Hindari emoji")
	assert.Contains(t, b.SystemPrompt(entities.FeatureVoice, entities.LanguageEnglish, Vars{}).Content, "avoid emojis")
}

func TestSystemPrompt_RecapDate(t *testing.T) {
	b := MustNewBuilder()

	withDate := b.SystemPrompt(entities.FeatureRecap, entities.LanguageEnglish, Vars{Date: "June 11, 2025"})
	assert.Contains(t, withDate.Content, "conversation from June 11, 2025.")
	assert.Contains(t, withDate.Content, "\n1. Main emotions")

	withoutDate := b.SystemPrompt(entities.FeatureRecap, entities.LanguageIndonesian, Vars{})
	assert.Contains(t, withoutDate.Content, "percakapan tanggal hari ini.")
}

func TestIntroTurn_VoiceHasNoEmoji(t *testing.T) {
	b := MustNewBuilder()

	chat := b.IntroTurn(entities.FeatureChat, entities.LanguageIndonesian)
	assert.Contains(t, chat.Content, "🌙")

	voice := b.IntroTurn(entities.FeatureVoice, entities.LanguageIndonesian)
	assert.NotContains(t, voice.Content, "🌙")
	assert.True(t, strings.HasPrefix(voice.Content, "Hai! Aku TemanTidur"))
}

func TestUserPrompt(t *testing.T) {
	b := MustNewBuilder()

	msg := b.UserPrompt(entities.FeatureEmotionMessage, entities.LanguageIndonesian, Vars{Emotion: "tired", Confidence: 0.8123})
	assert.Equal(t, repositories.UserRole, msg.Role)
	assert.Equal(t, "Aku baru upload foto dan terdeteksi sedang merasa tired dengan tingkat kepercayaan 0.81", msg.Content)

	rec := b.UserPrompt(entities.FeatureEmotionRecommendation, entities.LanguageEnglish, Vars{Emotion: "sad"})
	assert.Equal(t, "Tonight I feel sad. What can I do to feel better?", rec.Content)
}

func TestTranscript(t *testing.T) {
	b := MustNewBuilder()

	turns := []repositories.ChatMessage{
		{Role: repositories.UserRole, Content: "I can't sleep"},
		{Role: repositories.AssistantRole, Content: "I'm here"},
	}

	assert.Equal(t, "User: I can't sleep\n\nSleepBuddy: I'm here\n\n", b.Transcript(turns, entities.LanguageEnglish))
	assert.Equal(t, "User: I can't sleep\n\nTemanTidur: I'm here\n\n", b.Transcript(turns, entities.LanguageIndonesian))

	recap := b.UserPrompt(entities.FeatureRecap, entities.LanguageEnglish, Vars{
		Date:         "June 11, 2025",
		Conversation: b.Transcript(turns, entities.LanguageEnglish),
	})
	assert.Contains(t, recap.Content, "SleepBuddy: I'm here")
}

func TestParse_MissingLanguage(t *testing.T) {
	_, err := Parse([]byte(`
assistant_name:
  id: TemanTidur
  en: SleepBuddy
system:
  chat:
    id: halo
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system/chat/en")
}
