package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
)

// ErrNoChoicesReturned is returned when the provider answers without any completion.
var ErrNoChoicesReturned = errors.New("no choices returned")

// Error types reported when the provider gives none of its own.
const (
	ErrorTypeAPI           = "api_error"
	ErrorTypeTimeout       = "timeout"
	ErrorTypeCanceled      = "canceled"
	ErrorTypeConnection    = "connection_error"
	ErrorTypeEmptyResponse = "empty_response"
	ErrorTypeUnknown       = "unknown_error"
)

// ProviderError is a failed completion call.
type ProviderError struct {
	StatusCode int    // HTTP status from the provider, 0 if the call never got a response
	Type       string // provider error type, or one of the ErrorType constants
	Message    string
	Model      string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Type, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExtractProviderError maps any error from the SDK to a *ProviderError. Fields the
// underlying error does not carry are filled with generic values.
func ExtractProviderError(err error, model string) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	pe = &ProviderError{Type: ErrorTypeUnknown, Model: model, Err: err}

	var apiErr *openai.Error
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.StatusCode
		pe.Type = ErrorTypeAPI
		if apiErr.Type != "" {
			pe.Type = apiErr.Type
		}
		pe.Message = fmt.Sprintf("OpenAI API Error %d: %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode))
		if apiErr.Message != "" {
			pe.Message = apiErr.Message
		}
	case errors.Is(err, context.DeadlineExceeded):
		pe.Type = ErrorTypeTimeout
		pe.Message = "completion request timed out"
	case errors.Is(err, context.Canceled):
		pe.Type = ErrorTypeCanceled
		pe.Message = "completion request canceled"
	default:
		pe.Message = err.Error()
		var netErr net.Error
		if errors.As(err, &netErr) {
			pe.Type = ErrorTypeConnection
			if netErr.Timeout() {
				pe.Type = ErrorTypeTimeout
			}
		}
	}
	return pe
}
