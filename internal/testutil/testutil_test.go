package testutil

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/models"
)

func TestFakeCompleterRecordsRequests(t *testing.T) {
	f := NewFakeCompleter("hello")
	msgs := []models.ConversationTurn{models.UserTurn("hi")}
	out, err := f.Complete(context.Background(), genai.CompletionRequest{SystemPrompt: "sys", Messages: msgs})
	if err != nil || out != "hello" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}
	msgs[0].Content = "mutated"
	if got := f.LastRequest(t).Messages[0].Content; got != "hi" {
		t.Errorf("expected recorded request to be a copy, got %q", got)
	}
	if f.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", f.Calls())
	}
}

func TestFakeCompleterReplyFunc(t *testing.T) {
	boom := errors.New("boom")
	f := &FakeCompleter{ReplyFunc: func(genai.CompletionRequest) (string, error) { return "", boom }}
	if _, err := f.Complete(context.Background(), genai.CompletionRequest{}); err != boom {
		t.Errorf("expected scripted error, got %v", err)
	}
}

func TestNewOrderStore(t *testing.T) {
	s := NewOrderStore()
	if s.Len() != len(SampleOrders()) {
		t.Errorf("expected %d orders, got %d", len(SampleOrders()), s.Len())
	}
	if _, ok := s.FindByID("ORD-2002"); !ok {
		t.Error("expected ORD-2002 to be present")
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/api/chat", map[string]string{"message": "hi"})
	if req.Header.Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
}
