package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeFile converts the audio stored at path to text
	TranscribeFile(ctx context.Context, path string, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate           int      `json:"sample_rate"`
	Encoding             string   `json:"encoding"`
	Language             string   `json:"language"`
	AlternativeLanguages []string `json:"alternative_languages,omitempty"`
}
