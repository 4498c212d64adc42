package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
)

func apiError(status int, typ, msg string) *openai.Error {
	return &openai.Error{
		StatusCode: status,
		Type:       typ,
		Message:    msg,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func TestExtractProviderError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "api error with body",
			err:        apiError(http.StatusNotFound, "invalid_request_error", "The model does not exist"),
			wantType:   "invalid_request_error",
			wantStatus: http.StatusNotFound,
			wantMsg:    "The model does not exist",
		},
		{
			name:       "api error without body",
			err:        fmt.Errorf("wrapped: %w", apiError(http.StatusUnauthorized, "", "")),
			wantType:   ErrorTypeAPI,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "OpenAI API Error 401: Unauthorized",
		},
		{
			name:     "deadline",
			err:      fmt.Errorf("post: %w", context.DeadlineExceeded),
			wantType: ErrorTypeTimeout,
			wantMsg:  "completion request timed out",
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantType: ErrorTypeCanceled,
			wantMsg:  "completion request canceled",
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			wantType: ErrorTypeUnknown,
			wantMsg:  "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ExtractProviderError(tt.err, "model-x")
			if pe.Type != tt.wantType {
				t.Errorf("type: expected %q, got %q", tt.wantType, pe.Type)
			}
			if pe.StatusCode != tt.wantStatus {
				t.Errorf("status: expected %d, got %d", tt.wantStatus, pe.StatusCode)
			}
			if pe.Message != tt.wantMsg {
				t.Errorf("message: expected %q, got %q", tt.wantMsg, pe.Message)
			}
			if pe.Model != "model-x" {
				t.Errorf("model: expected model-x, got %q", pe.Model)
			}
			if !errors.Is(pe, tt.err) {
				t.Error("expected ProviderError to unwrap to the cause")
			}
		})
	}
}

func TestExtractProviderError_PassesThrough(t *testing.T) {
	orig := &ProviderError{Type: "x", Message: "y"}
	if got := ExtractProviderError(fmt.Errorf("ctx: %w", orig), "m"); got != orig {
		t.Error("expected existing ProviderError to be returned unchanged")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	e := &ProviderError{StatusCode: 404, Type: "invalid_request_error", Message: "nope"}
	if e.Error() != "provider error 404 (invalid_request_error): nope" {
		t.Errorf("unexpected error string %q", e.Error())
	}
	e = &ProviderError{Type: ErrorTypeTimeout, Message: "late"}
	if e.Error() != "provider error (timeout): late" {
		t.Errorf("unexpected error string %q", e.Error())
	}
}
