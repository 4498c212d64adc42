// Package models defines the core data structures for SupportPipe.
//
// It includes the order record, conversation turns, and the request/response payloads
// shared between the flow, store, and api packages.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for a chat message
	MaxMessageLength = 4096
	// MaxSessionIDLength defines the maximum allowed length for a session identifier
	MaxSessionIDLength = 128
	// DefaultSessionID is used when the caller does not supply a session identifier
	DefaultSessionID = "default"
)

// Error taxonomy. Handlers match with errors.Is, so wrap rather than replace.
var (
	// ErrValidation is the parent of every client input error.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration is the parent of every server misconfiguration error.
	ErrConfiguration = errors.New("configuration error")

	ErrEmptyMessage     = fmt.Errorf("%w: message is required", ErrValidation)
	ErrMessageTooLong   = fmt.Errorf("%w: message exceeds maximum length", ErrValidation)
	ErrSessionIDTooLong = fmt.Errorf("%w: session_id exceeds maximum length", ErrValidation)
	ErrInvalidJSON      = fmt.Errorf("%w: invalid JSON format", ErrValidation)
	ErrMissingAPIKey    = fmt.Errorf("%w: OPENAI_API_KEY not set", ErrConfiguration)
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem marks the fixed store policy prompt.
	RoleSystem Role = "system"
	// RoleUser marks a customer message.
	RoleUser Role = "user"
	// RoleAssistant marks a model reply.
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single message in a session history.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn is shorthand for a user-authored turn.
func UserTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleUser, Content: content}
}

// AssistantTurn is shorthand for an assistant-authored turn.
func AssistantTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleAssistant, Content: content}
}

// Common order status values. The column is free text, so other values pass through.
const (
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

// OrderRecord is one immutable row of the order table.
type OrderRecord struct {
	OrderID           string    `json:"order_id"`
	CustomerName      string    `json:"customer_name"`
	ProductName       string    `json:"product_name"`
	Quantity          int       `json:"quantity"`
	OrderDate         time.Time `json:"order_date"`
	OrderStatus       string    `json:"order_status"`
	TotalCents        int64     `json:"total_cents"` // currency amount in minor units
	EstimatedDelivery time.Time `json:"estimated_delivery"`
	TrackingNumber    string    `json:"tracking_number,omitempty"`
	ShippingAddress   string    `json:"shipping_address"`
	Phone             string    `json:"phone"`
}

// TotalAmount renders the order total as a dollar amount, e.g. "$149.99".
func (o OrderRecord) TotalAmount() string {
	sign := ""
	cents := o.TotalCents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// ChatRequest is the payload accepted by the chat endpoint.
type ChatRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Normalize trims every field and applies the default session identifier.
func (r *ChatRequest) Normalize() {
	r.Message = strings.TrimSpace(r.Message)
	r.SessionID = strings.TrimSpace(r.SessionID)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if r.SessionID == "" {
		r.SessionID = DefaultSessionID
	}
}

// Validate checks the request after Normalize has been applied.
func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if len(r.SessionID) > MaxSessionIDLength {
		return ErrSessionIDTooLong
	}
	return nil
}

// ChatResponse is returned by the chat endpoint on success.
type ChatResponse struct {
	Response    string `json:"response"`
	NeedsPhone  bool   `json:"needs_phone"`
	OrderFound  *bool  `json:"order_found,omitempty"` // set only for order-related messages
	OrderID     string `json:"order_id,omitempty"`
	OrderStatus string `json:"order_status,omitempty"`
}

// ErrorResponse is the structured body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	ErrorType  string `json:"error_type,omitempty"`
	Model      string `json:"model,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error creates an error response with only a message.
func Error(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// HealthStatusOK is the status reported by a running server.
const HealthStatusOK = "ok"

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	APIKeyLoaded bool   `json:"api_key_loaded"`
	OrdersLoaded int    `json:"orders_loaded"`
	Model        string `json:"model,omitempty"`
}
