// Package language guesses whether a message is Indonesian or English.
package language

import (
	"strings"
	"unicode"

	"github.com/satriahrh/temantidur/server/domain/entities"
)

// particleBonus is added once when colloquial particles or contractions appear
const particleBonus = 2

var indonesianWords = wordSet(
	"saya", "aku", "kamu", "dia", "mereka", "kita", "kami",
	"yang", "dan", "atau", "dengan", "untuk", "dari", "ke",
	"di", "pada", "dalam", "adalah", "akan", "sudah", "belum",
	"tidak", "bukan", "juga", "hanya", "seperti", "karena",
	"gimana", "kenapa", "bagaimana", "mengapa", "dimana",
	"apa", "siapa", "kapan", "mana", "berapa",
)

var englishWords = wordSet(
	"i", "you", "he", "she", "they", "we", "me", "him", "her",
	"the", "and", "or", "with", "for", "from", "to", "in",
	"on", "at", "is", "are", "was", "were", "will", "would",
	"not", "don't", "won't", "can't", "shouldn't", "couldn't",
	"how", "why", "what", "who", "when", "where", "which",
)

var indonesianParticles = wordSet("gw", "gue", "lu", "loe", "emang", "banget", "dong", "sih", "kok", "deh")

var englishContractions = wordSet("i'm", "you're", "he's", "she's", "they're", "we're", "it's")

// Detect returns the language text is most likely written in. Every
// whole-word occurrence of a keyword scores a point, so "di" never matches
// inside "did". Ties, including empty text, resolve to Indonesian.
func Detect(text string) entities.Language {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return entities.LanguageIndonesian
	}

	var indonesianScore, englishScore int
	var hasParticle, hasContraction bool
	for _, token := range tokens {
		if _, ok := indonesianWords[token]; ok {
			indonesianScore++
		}
		if _, ok := englishWords[token]; ok {
			englishScore++
		}
		if _, ok := indonesianParticles[token]; ok {
			hasParticle = true
		}
		if _, ok := englishContractions[token]; ok {
			hasContraction = true
		}
	}

	if hasParticle {
		indonesianScore += particleBonus
	}
	if hasContraction {
		englishScore += particleBonus
	}

	if englishScore > indonesianScore {
		return entities.LanguageEnglish
	}
	return entities.LanguageIndonesian
}

// Tokenize lower-cases text and splits it into words. Apostrophes stay
// inside words so contractions survive as a single token.
func Tokenize(text string) []string {
	text = strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	tokens := fields[:0]
	for _, field := range fields {
		field = strings.Trim(field, "'")
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
