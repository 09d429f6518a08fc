package entities

import "strings"

// Language is the output language of a response
type Language string

const (
	LanguageIndonesian Language = "id"
	LanguageEnglish    Language = "en"
)

// Languages lists every supported language
var Languages = []Language{LanguageIndonesian, LanguageEnglish}

// ParseLanguage clamps a caller supplied language code to a supported one.
// Anything other than "en" falls back to Indonesian.
func ParseLanguage(code string) Language {
	if strings.EqualFold(strings.TrimSpace(code), string(LanguageEnglish)) {
		return LanguageEnglish
	}
	return LanguageIndonesian
}

// Locale returns the BCP-47 locale used by the speech services
func (l Language) Locale() string {
	if l == LanguageEnglish {
		return "en-US"
	}
	return "id-ID"
}

func (l Language) String() string {
	return string(l)
}
