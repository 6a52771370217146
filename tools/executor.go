// Tool Executor with Retry Logic.
//
// Information Hiding:
// - Retry strategy implementation hidden
// - Per-attempt timeout hidden
// - Error classification logic hidden
// - Panics inside tools contained

package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/richinex/anko/internal/backoff"
)

// Outcome is the result of running one tool call.
// Err is nil on success, otherwise *ExecutionError or *NotFoundError.
type Outcome struct {
	Output   string
	Attempts int
	Duration time.Duration
	Err      error
}

// Executor provides tool execution with retry and timeout support.
type Executor struct {
	config ToolConfig
	policy backoff.Policy
	logger *slog.Logger
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	policy := backoff.Default()
	policy.Attempts = int(config.Retries())
	return &Executor{config: config, policy: policy, logger: logger}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultToolConfig(), nil)
}

// WithBackoff replaces the delay schedule. Attempts still come from the
// ToolConfig.
func (e *Executor) WithBackoff(base, maxDelay time.Duration) *Executor {
	e.policy.BaseDelay = base
	e.policy.MaxDelay = maxDelay
	return e
}

// Execute runs tool on input, retrying transient failures.
func (e *Executor) Execute(ctx context.Context, tool Tool, input string) Outcome {
	name := tool.Metadata().Name
	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	timeout := time.Duration(e.config.Timeout()) * time.Second
	start := time.Now()

	var output string
	attempts, err := backoff.Do(ctx, e.policy, shouldRetry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			e.logger.Warn("retrying tool", "tool", name, "attempt", attempt)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := invokeOnce(attemptCtx, tool, input)
		if err != nil {
			return err
		}
		output = out
		return nil
	})

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("tool.attempts", attempts))
	if err != nil {
		execErr := &ExecutionError{Tool: name, Attempts: attempts, Err: err}
		span.RecordError(execErr)
		span.SetStatus(codes.Error, "tool failed")
		return Outcome{Attempts: attempts, Duration: elapsed, Err: execErr}
	}
	return Outcome{Output: output, Attempts: attempts, Duration: elapsed}
}

// invokeOnce runs a single attempt, turning a panic into a permanent error.
func invokeOnce(ctx context.Context, tool Tool, input string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("tool panicked: %v", r))
		}
	}()
	return tool.Invoke(ctx, input)
}

// shouldRetry determines if an error is retryable.
// Cancellation and permanent errors are not; a per-attempt timeout is.
func shouldRetry(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
