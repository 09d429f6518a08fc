package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FailureCategory classifies why a provider call did not produce a result.
// It drives the fallback message lookup.
type FailureCategory string

const (
	FailureContentFiltered  FailureCategory = "content_filtered"
	FailureRateLimited      FailureCategory = "rate_limited"
	FailureConnectionFailed FailureCategory = "connection_failed"
	FailureTimeout          FailureCategory = "timeout"
	FailureBadRequest       FailureCategory = "bad_request"
	FailureInvalidJSON      FailureCategory = "invalid_json"
	FailureUnexpected       FailureCategory = "unexpected"
)

// FailureCategories lists every category, in a stable order
var FailureCategories = []FailureCategory{
	FailureContentFiltered,
	FailureRateLimited,
	FailureConnectionFailed,
	FailureTimeout,
	FailureBadRequest,
	FailureInvalidJSON,
	FailureUnexpected,
}

// Sentinel causes carried inside a ProviderError
var (
	ErrNoPrediction        = errors.New("no emotion detected")
	ErrSpeechNotRecognized = errors.New("speech not recognized")
	ErrSpeechCanceled      = errors.New("speech operation canceled")
)

// ContentPolicyMarkers are substrings a provider puts in its failure detail
// when its content policy rejected the prompt or the completion.
var ContentPolicyMarkers = []string{"content_filter", "ResponsibleAIPolicyViolation"}

// ProviderError is the single failure type returned by provider adapters
type ProviderError struct {
	Provider string
	Category FailureCategory
	Detail   string
	Err      error
}

// NewProviderError builds a ProviderError
func NewProviderError(provider string, category FailureCategory, detail string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Category: category,
		Detail:   detail,
		Err:      err,
	}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Category)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ViolatesContentPolicy reports whether the failure detail carries a content policy marker
func (e *ProviderError) ViolatesContentPolicy() bool {
	for _, marker := range ContentPolicyMarkers {
		if strings.Contains(e.Detail, marker) {
			return true
		}
	}
	return false
}

// CategoryOf extracts the failure category of err.
// Errors that did not come from an adapter are unexpected, except context
// deadlines which are timeouts.
func CategoryOf(err error) FailureCategory {
	if err == nil {
		return ""
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureUnexpected
}
