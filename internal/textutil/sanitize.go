// Package textutil post-processes model output before it reaches a client.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	literalNewlinePattern = regexp.MustCompile(`\\n\\?|\\\\n`)
	literalEscapePattern  = regexp.MustCompile(`\\[rtn]`)
	whitespacePattern     = regexp.MustCompile(`\s+`)

	// emojiPattern covers emoticons, pictographs, transport symbols, flags,
	// dingbats, enclosed characters and the supplemental symbol blocks.
	emojiPattern = regexp.MustCompile(`[` +
		`\x{1F600}-\x{1F64F}` +
		`\x{1F300}-\x{1F5FF}` +
		`\x{1F680}-\x{1F6FF}` +
		`\x{1F1E0}-\x{1F1FF}` +
		`\x{2702}-\x{27B0}` +
		`\x{24C2}-\x{1F251}` +
		`\x{1F900}-\x{1F9FF}` +
		`\x{2600}-\x{26FF}` +
		`\x{1F170}-\x{1F251}` +
		`\x{1FA70}-\x{1FAFF}` +
		`\x{FE0F}\x{200D}` +
		`]+`)
)

// StripNewlines turns a multi-line completion into a single line
func StripNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "  ", " ")
	return strings.TrimSpace(text)
}

// CleanForSpeech removes emoji and symbols that a speech engine would read
// out loud, then collapses whitespace.
func CleanForSpeech(text string) string {
	text = emojiPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// CleanText removes literal escape sequences such as `\n` that models
// sometimes emit as text, then collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return text
	}
	text = literalNewlinePattern.ReplaceAllString(text, " ")
	text = literalEscapePattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SplitSentences splits text at runs of '.', '!' or '?' that are followed by
// whitespace or the end of the text. Each sentence keeps its terminator.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i
		for end+1 < len(runes) && isTerminator(runes[end+1]) {
			end++
		}
		if end+1 == len(runes) || unicode.IsSpace(runes[end+1]) {
			if sentence := strings.TrimSpace(string(runes[start : end+1])); sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = end + 1
		}
		i = end
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// EnsureCompleteSentences cleans text, keeps at most maxSentences sentences
// and makes sure every sentence ends with terminal punctuation. Fragments
// without any letter or digit, such as a trailing emoji, are dropped.
func EnsureCompleteSentences(text string, maxSentences int) string {
	text = CleanText(text)
	if text == "" {
		return text
	}

	var kept []string
	for _, sentence := range SplitSentences(text) {
		if !hasWordCharacter(sentence) {
			continue
		}
		if maxSentences > 0 && len(kept) == maxSentences {
			break
		}
		if !endsWithTerminator(sentence) {
			sentence += "."
		}
		kept = append(kept, sentence)
	}
	return strings.Join(kept, " ")
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func endsWithTerminator(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func hasWordCharacter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
