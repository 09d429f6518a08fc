package usecase

import (
	"errors"
	"fmt"

	"github.com/satriahrh/temantidur/server/domain/entities"
)

// InputError rejects a structurally invalid request before any provider
// is called. Status is the HTTP status the transport should answer with.
type InputError struct {
	Status  int
	Code    string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// AsInputError reports whether err carries an InputError
func AsInputError(err error) (*InputError, bool) {
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr, true
	}
	return nil, false
}

// SoftFailure is an in-character answer to a failed request. It is sent
// with a success status.
type SoftFailure struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// providerDetail returns the adapter's failure detail for logging
func providerDetail(err error) string {
	var providerErr *entities.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// violatesContentPolicy reports whether a content-filtered failure was
// raised by the provider's content policy rather than a malformed prompt.
func violatesContentPolicy(err error) bool {
	var providerErr *entities.ProviderError
	return errors.As(err, &providerErr) && providerErr.ViolatesContentPolicy()
}
