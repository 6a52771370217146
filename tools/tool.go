// Package tools provides the tool system for the retail agent.
//
// Information Hiding:
// - Tool backends (web search, image generation, research, catalog) hidden behind Tool
// - Parameter schema generation hidden in schema.go
// - Retry and timeout policy hidden in the Executor
package tools

import (
	"context"
	"fmt"
)

// Metadata describes what a tool does and how the model should call it.
type Metadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	// Fallback is the reply given to the user when this tool cannot produce
	// a usable result.
	Fallback string `json:"-"`
}

// String returns a string representation of the tool metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their backend clients,
// request formats, and response shaping behind this interface.
type Tool interface {
	// Kind identifies the tool within the closed set the agent knows.
	Kind() Kind

	// Metadata returns tool metadata (name, description, parameters).
	Metadata() Metadata

	// Invoke runs the tool on a single string input.
	Invoke(ctx context.Context, input string) (string, error)
}

// Description is the model-facing summary of a registered tool.
type Description struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s, retries to 3.
type ToolConfig struct {
	TimeoutSecs uint64
	MaxRetries  uint32
}

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c *ToolConfig) Timeout() uint64 {
	if c == nil || c.TimeoutSecs == 0 {
		return 30
	}
	return c.TimeoutSecs
}

// Retries returns the configured max attempts, defaulting to 3 if zero.
func (c *ToolConfig) Retries() uint32 {
	if c == nil || c.MaxRetries == 0 {
		return 3
	}
	return c.MaxRetries
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		TimeoutSecs: 30,
		MaxRetries:  3,
	}
}
