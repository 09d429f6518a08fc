package repositories

import (
	"context"

	"github.com/satriahrh/temantidur/server/domain/entities"
)

// EmotionClassifier abstracts image based emotion recognition
type EmotionClassifier interface {
	// ClassifyImage returns the most confident emotion found in the image
	ClassifyImage(ctx context.Context, image []byte) (entities.EmotionResult, error)
}
