package repositories

import "context"

// TextToSpeech abstracts speech synthesis services
type TextToSpeech interface {
	// SynthesizeAudio converts text to a WAV encoded utterance
	SynthesizeAudio(ctx context.Context, text string, config VoiceConfig) ([]byte, error)
}

// VoiceConfig selects the synthesis voice
type VoiceConfig struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
}
