// LLMClient - Simple wrapper around providers.
//
// Information Hiding:
// - Span creation around each model call hidden
// - Token accounting attributes hidden

package llm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client wraps a Provider with a simple, traced interface.
type Client struct {
	provider Provider
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Chat sends a chat completion request and returns just the content.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	ctx, span := c.start(ctx, "model chat", len(messages))
	defer span.End()

	response, err := c.provider.Chat(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		return "", err
	}
	recordUsage(span, response.Usage)
	return response.Content, nil
}

// ChatWithTools sends a chat completion request with tool definitions.
func (c *Client) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error) {
	ctx, span := c.start(ctx, "model call", len(messages))
	defer span.End()
	span.SetAttributes(attribute.Int("llm.tools", len(tools)))

	response, err := c.provider.ChatWithTools(ctx, messages, tools)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat with tools failed")
		return LLMResponse{}, err
	}
	span.SetAttributes(attribute.Int("llm.tool_calls", len(response.ToolCalls)))
	recordUsage(span, response.Usage)
	return response, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

func (c *Client) start(ctx context.Context, name string, messages int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("llm.provider", c.provider.Name()),
		attribute.String("llm.model", c.provider.Model()),
		attribute.Int("llm.messages", messages),
	)
	return ctx, span
}

func recordUsage(span trace.Span, usage *TokenUsage) {
	if usage == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", int(usage.PromptTokens)),
		attribute.Int("llm.usage.completion_tokens", int(usage.CompletionTokens)),
	)
}
