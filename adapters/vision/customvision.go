package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

const (
	customVisionProvider = "custom_vision"
	defaultTimeout       = 30 * time.Second
)

// CustomVisionConfig holds configuration for the CustomVision adapter
// Required fields:
// - PredictionURL: the published iteration's image classification URL
// - PredictionKey: the prediction resource key
// Optional fields with defaults:
// - Timeout: HTTP client timeout (default: 30s)
type CustomVisionConfig struct {
	PredictionURL string
	PredictionKey string
	Timeout       time.Duration
}

// CustomVision classifies facial expressions with an Azure Custom Vision
// image classification model.
type CustomVision struct {
	predictionURL string
	predictionKey string
	client        *http.Client
	logger        *zap.Logger
}

// Ensure CustomVision implements the EmotionClassifier interface
var _ repositories.EmotionClassifier = (*CustomVision)(nil)

type prediction struct {
	TagName     string  `json:"tagName"`
	Probability float64 `json:"probability"`
}

type predictionResponse struct {
	Predictions []prediction `json:"predictions"`
}

// ValidateCustomVisionConfig validates the CustomVisionConfig
func ValidateCustomVisionConfig(config CustomVisionConfig) error {
	if config.PredictionURL == "" {
		return fmt.Errorf("Custom Vision prediction URL is required")
	}
	if _, err := url.ParseRequestURI(config.PredictionURL); err != nil {
		return fmt.Errorf("Custom Vision prediction URL is not valid: %w", err)
	}
	if config.PredictionKey == "" {
		return fmt.Errorf("Custom Vision prediction key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewCustomVision creates a new Custom Vision classifier
func NewCustomVision(config CustomVisionConfig, logger *zap.Logger) (*CustomVision, error) {
	if err := ValidateCustomVisionConfig(config); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	return &CustomVision{
		predictionURL: config.PredictionURL,
		predictionKey: config.PredictionKey,
		client:        &http.Client{Timeout: timeout},
		logger:        logger,
	}, nil
}

// ClassifyImage returns the most probable emotion tag of image
func (c *CustomVision) ClassifyImage(ctx context.Context, image []byte) (entities.EmotionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictionURL, bytes.NewReader(image))
	if err != nil {
		return entities.EmotionResult{}, entities.NewProviderError(customVisionProvider, entities.FailureUnexpected, "failed to create request", err)
	}
	req.Header.Set("Prediction-Key", c.predictionKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Custom Vision request failed", zap.Error(err))
		if isTimeout(err) {
			return entities.EmotionResult{}, entities.NewProviderError(customVisionProvider, entities.FailureTimeout, "request timed out", err)
		}
		return entities.EmotionResult{}, entities.NewProviderError(customVisionProvider, entities.FailureConnectionFailed, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		c.logger.Warn("Custom Vision returned an error", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))

		category := entities.FailureBadRequest
		if resp.StatusCode == http.StatusTooManyRequests {
			category = entities.FailureRateLimited
		}
		return entities.EmotionResult{}, entities.NewProviderError(customVisionProvider, category, detail, nil)
	}

	var result predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return entities.EmotionResult{}, entities.NewProviderError(customVisionProvider, entities.FailureInvalidJSON, "failed to decode predictions", err)
	}

	top, ok := topPrediction(result.Predictions)
	if !ok {
		return entities.EmotionResult{}, entities.NewProviderError(customVisionProvider, entities.FailureUnexpected, "no predictions returned", entities.ErrNoPrediction)
	}

	c.logger.Info("Emotion classified",
		zap.String("emotion", top.TagName),
		zap.Float64("confidence", top.Probability))

	return entities.EmotionResult{Label: top.TagName, Confidence: top.Probability}, nil
}

// topPrediction picks the highest probability; the first one wins ties
func topPrediction(predictions []prediction) (prediction, bool) {
	if len(predictions) == 0 {
		return prediction{}, false
	}
	top := predictions[0]
	for _, p := range predictions[1:] {
		if p.Probability > top.Probability {
			top = p
		}
	}
	return top, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
