package language

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satriahrh/temantidur/server/domain/entities"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want entities.Language
	}{
		{name: "empty", text: "", want: entities.LanguageIndonesian},
		{name: "whitespace only", text: "   \n\t", want: entities.LanguageIndonesian},
		{name: "indonesian with particle", text: "aku sedih banget malam ini", want: entities.LanguageIndonesian},
		{name: "plain english", text: "I feel tired and I can't sleep tonight", want: entities.LanguageEnglish},
		{name: "english contraction", text: "I'm okay", want: entities.LanguageEnglish},
		{name: "upper case english", text: "WHY IS THE NIGHT SO LONG", want: entities.LanguageEnglish},
		{name: "curly apostrophe", text: "you’re kind", want: entities.LanguageEnglish},
		{name: "no keywords ties to indonesian", text: "ok", want: entities.LanguageIndonesian},
		{name: "tie goes to indonesian", text: "aku the", want: entities.LanguageIndonesian},
		{name: "colloquial indonesian", text: "gue capek deh", want: entities.LanguageIndonesian},
		{name: "substring is not a word", text: "sedih", want: entities.LanguageIndonesian},
		{name: "emoji only", text: "🌙✨", want: entities.LanguageIndonesian},
		{name: "words inside words do not score", text: "did you sleep", want: entities.LanguageEnglish},
		{name: "repeated words count each time", text: "the tea and the cake, dia sama kamu", want: entities.LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	text := "kamu tahu what I mean kan"
	first := Detect(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Detect(text))
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"i'm", "here", "ok"}, Tokenize("I'm here, OK?"))
	assert.Equal(t, []string{"rock", "n", "roll"}, Tokenize("'rock' 'n' roll"))
	assert.Empty(t, Tokenize("!!! ..."))
}
