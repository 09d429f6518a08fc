package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripNewlines(t *testing.T) {
	assert.Equal(t, "Dengarkan musik. Minum teh hangat.", StripNewlines("Dengarkan musik.\nMinum teh hangat.\n"))
	assert.Equal(t, "a b", StripNewlines("a\r\nb"))
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hai! 🌙✨ Aku di sini.", want: "Hai! Aku di sini."},
		{in: "I'm proud of you 🌟💤", want: "I'm proud of you"},
		{in: "Good night ❤️ friend", want: "Good night friend"},
		{in: "  spaced\n\nout  ", want: "spaced out"},
		{in: "🎧🧘‍♀️", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanForSpeech(tt.in), tt.in)
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "first second third", CleanText(`first\nsecond\\nthird`))
	assert.Equal(t, "tab here", CleanText(`tab\there`))
	assert.Equal(t, "real newline", CleanText("real\n\nnewline"))
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t,
		[]string{"Hi!", "How are you?", "It took 3.5 hours..."},
		SplitSentences("Hi! How are you? It took 3.5 hours..."))
	assert.Equal(t, []string{"no terminator"}, SplitSentences("no terminator"))
	assert.Empty(t, SplitSentences("   "))
}

func TestEnsureCompleteSentences(t *testing.T) {
	t.Run("clamps to max sentences", func(t *testing.T) {
		text := "One. Two! Three? Four. Five. Six. Seven. Eight."
		got := EnsureCompleteSentences(text, 6)
		assert.Equal(t, "One. Two! Three? Four. Five. Six.", got)
	})

	t.Run("adds missing terminator", func(t *testing.T) {
		assert.Equal(t, "You were brave today. Keep going 🌈.", EnsureCompleteSentences("You were brave today. Keep going 🌈", 6))
	})

	t.Run("drops emoji only fragments", func(t *testing.T) {
		assert.Equal(t, "Great job!", EnsureCompleteSentences("Great job! 🌈", 6))
	})

	t.Run("cleans escape sequences", func(t *testing.T) {
		assert.Equal(t, "Line one. Line two.", EnsureCompleteSentences(`Line one.\nLine two.`, 6))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", EnsureCompleteSentences("", 6))
	})

	t.Run("every sentence terminated", func(t *testing.T) {
		text := strings.Repeat("Kamu hebat hari ini! Tetap semangat ya 💙 ", 10)
		got := EnsureCompleteSentences(text, 6)
		sentences := SplitSentences(got)
		require.NotEmpty(t, sentences)
		assert.LessOrEqual(t, len(sentences), 6)
		for _, s := range sentences {
			assert.True(t, endsWithTerminator(s), s)
		}
	})
}
