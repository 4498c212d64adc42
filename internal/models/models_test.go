package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestChatRequestNormalize(t *testing.T) {
	r := ChatRequest{Message: "  hello  ", PhoneNumber: " 555-123-4567 "}
	r.Normalize()
	if r.Message != "hello" {
		t.Errorf("expected trimmed message, got %q", r.Message)
	}
	if r.SessionID != DefaultSessionID {
		t.Errorf("expected default session id, got %q", r.SessionID)
	}
	if r.PhoneNumber != "555-123-4567" {
		t.Errorf("expected trimmed phone, got %q", r.PhoneNumber)
	}
}

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
		want error
	}{
		{"ok", ChatRequest{Message: "hi", SessionID: "s1"}, nil},
		{"empty message", ChatRequest{Message: "", SessionID: "s1"}, ErrEmptyMessage},
		{"long message", ChatRequest{Message: strings.Repeat("a", MaxMessageLength+1), SessionID: "s1"}, ErrMessageTooLong},
		{"long session", ChatRequest{Message: "hi", SessionID: strings.Repeat("s", MaxSessionIDLength+1)}, ErrSessionIDTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if err != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("expected error to wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestWhitespaceOnlyMessageIsEmpty(t *testing.T) {
	r := ChatRequest{Message: " \t\n "}
	r.Normalize()
	if err := r.Validate(); err != ErrEmptyMessage {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	if !errors.Is(ErrMissingAPIKey, ErrConfiguration) {
		t.Error("ErrMissingAPIKey should wrap ErrConfiguration")
	}
	if errors.Is(ErrMissingAPIKey, ErrValidation) {
		t.Error("ErrMissingAPIKey should not wrap ErrValidation")
	}
}

func TestOrderRecordTotalAmount(t *testing.T) {
	cases := map[int64]string{
		14999: "$149.99",
		5:     "$0.05",
		100:   "$1.00",
		-250:  "-$2.50",
	}
	for cents, want := range cases {
		if got := (OrderRecord{TotalCents: cents}).TotalAmount(); got != want {
			t.Errorf("TotalAmount(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestChatResponseOmitsOrderFieldsWhenUnset(t *testing.T) {
	data, err := json.Marshal(ChatResponse{Response: "hi"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(data)
	for _, key := range []string{"order_found", "order_id", "order_status"} {
		if strings.Contains(s, key) {
			t.Errorf("expected %s to be omitted, got %s", key, s)
		}
	}
	if !strings.Contains(s, `"needs_phone":false`) {
		t.Errorf("expected needs_phone to always be present, got %s", s)
	}
}
