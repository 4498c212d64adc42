// Package flow implements the customer support dialogue: it decides whether a message is
// about an order, resolves that order, and assembles the conversation sent to the model.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

// Completion settings applied to every chat.
const (
	Temperature = 0.7
	MaxTokens   = 600
)

var (
	// orderKeywords gate the order lookup.
	orderKeywords = []string{"order", "cancel", "status", "tracking", "delivery", "shipment"}
	// phoneGateKeywords select the order-related messages that ask for a phone number when unresolved.
	phoneGateKeywords = []string{"cancel", "detail", "status"}
)

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsOrderRelated reports whether a message mentions any order keyword.
func IsOrderRelated(message string) bool {
	return containsAny(message, orderKeywords)
}

// Resolver finds the order a message refers to.
type Resolver interface {
	Resolve(query, phoneHint string) (models.OrderRecord, Strategy, bool)
}

// History is the per-session conversation memory.
type History interface {
	Get(sessionID string) []models.ConversationTurn
	AppendExchange(sessionID string, user, assistant models.ConversationTurn)
}

// SupportFlow turns a chat request into a completion call and a chat response.
type SupportFlow struct {
	resolver  Resolver
	history   History
	completer genai.Completer
}

// NewSupportFlow wires the dialogue flow. A nil completer makes every chat fail with
// models.ErrMissingAPIKey. A nil history gets a private in-memory store.
func NewSupportFlow(resolver Resolver, history History, completer genai.Completer) *SupportFlow {
	slog.Debug("SupportFlow.NewSupportFlow: creating flow", "hasResolver", resolver != nil, "hasHistory", history != nil, "hasCompleter", completer != nil)
	if history == nil {
		history = store.NewHistoryStore()
	}
	return &SupportFlow{resolver: resolver, history: history, completer: completer}
}

// Model returns the completion model identifier, or "" when no completer is configured.
func (f *SupportFlow) Model() string {
	if f.completer == nil {
		return ""
	}
	return f.completer.Model()
}

// Configured reports whether a completer is available.
func (f *SupportFlow) Configured() bool {
	return f.completer != nil
}

// Process handles one chat request. History is only updated after a successful completion.
func (f *SupportFlow) Process(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.ChatResponse{}, err
	}
	if f.completer == nil {
		return models.ChatResponse{}, models.ErrMissingAPIKey
	}

	orderRelated := IsOrderRelated(req.Message)
	var (
		order    models.OrderRecord
		strategy Strategy
		found    bool
	)
	if orderRelated && f.resolver != nil {
		order, strategy, found = f.resolver.Resolve(req.Message, req.PhoneNumber)
	}
	slog.Debug("SupportFlow.Process: classified message",
		"session_id", req.SessionID, "order_related", orderRelated, "order_found", found, "strategy", strategy, "phone_supplied", req.PhoneNumber != "")

	userContent := req.Message
	if found {
		userContent = AugmentMessage(req.Message, order)
	}
	history := f.history.Get(req.SessionID)
	messages := append(history, models.UserTurn(userContent))

	reply, err := f.completer.Complete(ctx, genai.CompletionRequest{
		SystemPrompt: SystemPrompt,
		Messages:     messages,
		Temperature:  Temperature,
		MaxTokens:    MaxTokens,
	})
	if err != nil {
		slog.Error("SupportFlow.Process: completion failed", "session_id", req.SessionID, "error", err)
		return models.ChatResponse{}, fmt.Errorf("completion failed: %w", err)
	}

	// History keeps the raw message, never the order-enriched text.
	f.history.AppendExchange(req.SessionID, models.UserTurn(req.Message), models.AssistantTurn(reply))

	resp := models.ChatResponse{
		Response:   reply,
		NeedsPhone: orderRelated && req.PhoneNumber == "" && !found && containsAny(req.Message, phoneGateKeywords),
	}
	if orderRelated {
		resp.OrderFound = &found
	}
	if found {
		resp.OrderID = order.OrderID
		resp.OrderStatus = order.OrderStatus
	}
	slog.Info("SupportFlow.Process: chat answered", "session_id", req.SessionID, "history_turns", len(history), "needs_phone", resp.NeedsPhone, "order_found", found)
	return resp, nil
}
