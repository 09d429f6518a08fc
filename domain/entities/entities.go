package entities

import "math"

// Feature names a caller facing capability, or one independently degraded
// output of a capability.
type Feature string

const (
	FeatureChat                  Feature = "chat"
	FeatureEmotion               Feature = "emotion"
	FeatureEmotionRecommendation Feature = "emotion_recommendation"
	FeatureEmotionMessage        Feature = "emotion_message"
	FeatureVoice                 Feature = "voice"
	FeatureRecap                 Feature = "recap"
)

// Features lists every feature that owns fallback messages
var Features = []Feature{
	FeatureChat,
	FeatureEmotion,
	FeatureEmotionRecommendation,
	FeatureEmotionMessage,
	FeatureVoice,
	FeatureRecap,
}

// EmotionResult is the top prediction of the vision classifier
type EmotionResult struct {
	Label      string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// RoundedConfidence returns the confidence rounded to two decimals
func (r EmotionResult) RoundedConfidence() float64 {
	return math.Round(r.Confidence*100) / 100
}

// VoiceTurn is one spoken exchange
type VoiceTurn struct {
	AudioBytes     []byte
	Transcript     string
	IsFirstMessage bool
}
