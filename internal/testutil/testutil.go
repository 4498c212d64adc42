// Package testutil provides common test utilities and helpers for SupportPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

// FakeCompleter is a scripted genai.Completer that records every request.
type FakeCompleter struct {
	mu        sync.Mutex
	Reply     string
	Err       error
	ModelName string
	// ReplyFunc, when set, overrides Reply and Err.
	ReplyFunc func(req genai.CompletionRequest) (string, error)
	requests  []genai.CompletionRequest
}

// NewFakeCompleter returns a completer that always answers with reply.
func NewFakeCompleter(reply string) *FakeCompleter {
	return &FakeCompleter{Reply: reply, ModelName: "test-model"}
}

// Complete records the request and returns the scripted reply.
func (f *FakeCompleter) Complete(ctx context.Context, req genai.CompletionRequest) (string, error) {
	f.mu.Lock()
	req.Messages = append([]models.ConversationTurn(nil), req.Messages...)
	f.requests = append(f.requests, req)
	replyFunc, reply, err := f.ReplyFunc, f.Reply, f.Err
	f.mu.Unlock()
	if replyFunc != nil {
		return replyFunc(req)
	}
	return reply, err
}

// Model returns the configured model name.
func (f *FakeCompleter) Model() string {
	return f.ModelName
}

// Calls returns the number of Complete calls so far.
func (f *FakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// LastRequest returns the most recent request. It fails the test if there is none.
func (f *FakeCompleter) LastRequest(t *testing.T) genai.CompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("expected at least one completion request")
	}
	return f.requests[len(f.requests)-1]
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SampleOrders returns a small fixed order table.
func SampleOrders() []models.OrderRecord {
	return []models.OrderRecord{
		{
			OrderID: "ORD-1001", CustomerName: "Jane Doe", ProductName: "Wireless Earbuds", Quantity: 2,
			OrderDate: day(2024, 1, 15), OrderStatus: models.OrderStatusShipped, TotalCents: 14999,
			EstimatedDelivery: day(2024, 1, 20), TrackingNumber: "1Z999AA10123456784",
			ShippingAddress: "12 Main St, Springfield", Phone: "555-123-4567",
		},
		{
			OrderID: "ORD-2002", CustomerName: "John Smith", ProductName: "USB-C Hub", Quantity: 1,
			OrderDate: day(2024, 2, 1), OrderStatus: models.OrderStatusProcessing, TotalCents: 3950,
			EstimatedDelivery: day(2024, 2, 6), ShippingAddress: "9 Elm Ave, Shelbyville", Phone: "(555) 987-6543",
		},
		{
			OrderID: "ORD-3003", CustomerName: "Maria Garcia", ProductName: "Smart Watch", Quantity: 1,
			OrderDate: day(2024, 3, 10), OrderStatus: models.OrderStatusDelivered, TotalCents: 19999,
			EstimatedDelivery: day(2024, 3, 14), ShippingAddress: "5 Oak Rd, Capital City", Phone: "555.222.3333",
		},
	}
}

// NewOrderStore returns an order store over SampleOrders.
func NewOrderStore() *store.OrderStore {
	return store.NewOrderStore("testutil", SampleOrders())
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, label string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", label, expected, actual)
	}
}

// DecodeJSON decodes the recorder body into v and fails the test on error.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode JSON response: %v (body %q)", err, rr.Body.String())
	}
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
