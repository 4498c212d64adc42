// Package genai provides the completion provider used to answer support chats, backed by the OpenAI API.
package genai

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default client settings.
const (
	// DefaultModel is used when no model identifier is configured
	DefaultModel = "gpt-4o-mini-2024-07-18"
	// DefaultTimeout bounds a single completion call
	DefaultTimeout = 30 * time.Second
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Completer is the single synchronous call the dialogue flow depends on.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// CompletionRequest is a provider-neutral completion call.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []models.ConversationTurn
	Temperature  float64
	MaxTokens    int64
}

// Opts holds configuration for the client.
type Opts struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the API key instead of reading OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithTimeout bounds each completion call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat    chatService
	model   string
	timeout time.Duration
}

// NewClient initializes a client. Without WithAPIKey it falls back to OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, models.ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	// The SDK retries by default; a failed call must surface once, unretried.
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("genai.NewClient: client created", "model", cfg.Model, "timeout", cfg.Timeout, "custom_base_url", cfg.BaseURL != "")
	return &Client{chat: &cli.Chat.Completions, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends the system prompt and turns to the model and returns the reply text.
// Every failure is returned as a *ProviderError.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: buildMessages(req),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	start := time.Now()
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		pe := ExtractProviderError(err, c.model)
		slog.Error("Client.Complete: completion failed", "model", c.model, "status_code", pe.StatusCode, "error_type", pe.Type, "elapsed", time.Since(start), "error", pe.Message)
		return "", pe
	}
	if resp == nil || len(resp.Choices) == 0 {
		slog.Error("Client.Complete: no choices returned", "model", c.model)
		return "", &ProviderError{Type: ErrorTypeEmptyResponse, Message: ErrNoChoicesReturned.Error(), Model: c.model, Err: ErrNoChoicesReturned}
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("Client.Complete: completion received", "model", c.model, "elapsed", time.Since(start), "length", len(content))
	return content, nil
}

// buildMessages converts turns to OpenAI message params, system prompt first.
func buildMessages(req CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			slog.Warn("genai.buildMessages: skipping turn with unknown role", "role", m.Role)
		}
	}
	return messages
}
