// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"
	"time"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	config Config
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.SystemPrompt = ""
	return &Builder{config: cfg}
}

// SystemPrompt sets the agent's system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// MaxIterations sets the per-turn model call limit.
func (b *Builder) MaxIterations(n int) *Builder {
	b.config.MaxIterations = n
	return b
}

// ModelRetries sets the attempts per model call.
func (b *Builder) ModelRetries(n int) *Builder {
	b.config.ModelRetries = n
	return b
}

// RetryBaseDelay sets the first backoff delay between model attempts.
func (b *Builder) RetryBaseDelay(d time.Duration) *Builder {
	b.config.RetryBaseDelay = d
	return b
}

// ModelTimeout bounds each model attempt.
func (b *Builder) ModelTimeout(d time.Duration) *Builder {
	b.config.ModelTimeout = d
	return b
}

// Fallback sets the general fallback reply.
func (b *Builder) Fallback(msg string) *Builder {
	b.config.Fallbacks.General = msg
	return b
}

// Build creates the agent configuration.
func (b *Builder) Build() Config {
	cfg := b.config
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = fmt.Sprintf(
			"You are an assistant named %s. Use the available tools to answer.",
			cfg.Name,
		)
	}
	return cfg.withDefaults()
}
