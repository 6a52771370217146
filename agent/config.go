// Agent configuration types.
//
// Information Hiding:
// - Default values hidden
// - Fallback selection hidden

package agent

import (
	"time"

	"github.com/richinex/anko/tools"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxIterations = 10
	DefaultModelRetries  = 3
	DefaultModelTimeout  = 2 * time.Minute
)

// Fallbacks are the replies given when a turn fails. Per-tool fallbacks come
// from the tool's metadata; General covers everything else.
type Fallbacks struct {
	General string
}

// Config holds agent configuration.
type Config struct {
	// Name is a unique identifier for the agent.
	Name string

	// SystemPrompt guides the agent's behavior.
	SystemPrompt string

	// MaxIterations bounds model calls per user turn.
	MaxIterations int

	// ModelRetries is the number of attempts per model call when the
	// provider reports a transient failure.
	ModelRetries int

	// RetryBaseDelay is the first backoff delay between model attempts.
	RetryBaseDelay time.Duration

	// ModelTimeout bounds a single model attempt.
	ModelTimeout time.Duration

	Fallbacks Fallbacks
}

// DefaultConfig returns a basic agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:          "anko",
		SystemPrompt:  "You are a helpful assistant.",
		MaxIterations: DefaultMaxIterations,
		ModelRetries:  DefaultModelRetries,
		ModelTimeout:  DefaultModelTimeout,
		Fallbacks:     Fallbacks{General: tools.ResearchFallback},
	}
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ModelRetries <= 0 {
		c.ModelRetries = DefaultModelRetries
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	if c.Fallbacks.General == "" {
		c.Fallbacks.General = tools.ResearchFallback
	}
	return c
}
