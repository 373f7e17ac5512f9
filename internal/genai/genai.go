// Package genai provides the completion collaborator over the OpenAI API.
//
// It exposes text and JSON completion calls with a bounded per-call
// timeout so a hung upstream degrades into the orchestrator's documented
// fallback path instead of blocking the turn.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Luks-code/luna-sub000/internal/models"
)

// DefaultTimeout bounds every completion call.
const DefaultTimeout = 30 * time.Second

// ClientInterface is the completion contract consumed by the orchestrator,
// the classifiers, and the complaint extractor.
type ClientInterface interface {
	// Generate returns a free-text completion for a system+user prompt pair.
	Generate(ctx context.Context, system, user string) (string, error)
	// GenerateWithHistory returns a free-text completion conditioned on
	// prior conversation turns.
	GenerateWithHistory(ctx context.Context, system string, history []models.ConversationMessage, user string) (string, error)
	// GenerateJSON returns a completion constrained to a JSON object.
	GenerateJSON(ctx context.Context, system, user string) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient initializes a new GenAI client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("genai.NewClient: creating client", "key_set", cfg.APIKey != "", "model", cfg.Model, "timeout", cfg.Timeout)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:  openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Generate returns a free-text completion for a system+user prompt pair.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	return c.GenerateWithHistory(ctx, system, nil, user)
}

// GenerateWithHistory returns a free-text completion conditioned on prior
// conversation turns.
func (c *Client) GenerateWithHistory(ctx context.Context, system string, history []models.ConversationMessage, user string) (string, error) {
	msgs := buildMessages(system, history, user)
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: msgs,
	})
}

// GenerateJSON returns a completion constrained to a JSON object, at low
// temperature for deterministic structured output.
func (c *Client) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	msgs := buildMessages(system, nil, user)
	return c.complete(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    msgs,
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
}

// complete issues the chat completion request under the client timeout.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.Error("genai.complete: completion failed", "error", err, "model", c.model)
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.complete: no choices returned", "model", c.model)
		return "", fmt.Errorf("no choices returned")
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("genai.complete: completion succeeded", "model", c.model, "responseLength", len(content))
	return content, nil
}

// buildMessages assembles the OpenAI message array: system prompt, prior
// turns, then the current user message.
func buildMessages(system string, history []models.ConversationMessage, user string) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case "user":
			msgs = append(msgs, openai.UserMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		}
	}
	if user != "" {
		msgs = append(msgs, openai.UserMessage(user))
	}
	return msgs
}
