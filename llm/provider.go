// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for chat models.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion, including function calling
// - Provider-specific error classification

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a plain chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithTools sends a chat completion request with tool definitions.
	// The LLM may respond with tool calls in LLMResponse.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}

// ImageGenerator turns a text description into a hosted image.
type ImageGenerator interface {
	// GenerateImage returns the URL of the generated image.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
