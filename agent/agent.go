// Tool-calling agent loop.
//
// Information Hiding:
// - State machine transitions hidden
// - Model retry policy hidden
// - Tool call parsing and dispatch hidden
// - Scoped resource lifetimes hidden

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/richinex/anko/internal/backoff"
	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/model"
	"github.com/richinex/anko/tools"
)

// Resource is a backend that must be connected while a turn runs and
// released afterwards.
type Resource interface {
	Connect(ctx context.Context) error
	Close() error
}

// Agent answers user turns by alternating model calls and tool calls.
// An Agent holds no per-conversation state and may serve many sessions.
type Agent struct {
	config    Config
	llmClient *llm.Client
	registry  *tools.Registry
	resources []Resource
	logger    *slog.Logger
}

// New creates an agent using provider for model calls and registry for tools.
func New(config Config, provider llm.Provider, registry *tools.Registry) *Agent {
	if registry == nil {
		registry = tools.NewRegistry(nil)
	}
	return &Agent{
		config:    config.withDefaults(),
		llmClient: llm.NewClient(provider),
		registry:  registry,
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger.
func (a *Agent) WithLogger(logger *slog.Logger) *Agent {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithResources adds resources connected around every turn.
func (a *Agent) WithResources(resources ...Resource) *Agent {
	a.resources = append(a.resources, resources...)
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Config returns the effective configuration.
func (a *Agent) Config() Config {
	return a.config
}

// Registry returns the agent's tools.
func (a *Agent) Registry() *tools.Registry {
	return a.registry
}

// turn is the mutable state of one Execute call.
type turn struct {
	state      State
	iteration  int
	scratchpad Scratchpad
	steps      []Step
	usage      llm.TokenUsage
	llmCalls   int
	start      time.Time
}

func (t *turn) record(detail string, action *string) {
	t.steps = append(t.steps, Step{
		Iteration: t.iteration,
		State:     t.state.String(),
		Action:    action,
		Detail:    detail,
	})
}

func (t *turn) response(answer string, err error) Response {
	return Response{
		State:     t.state,
		Answer:    answer,
		ToolCalls: t.scratchpad,
		Steps:     t.steps,
		Err:       err,
		Usage:     t.usage,
		LLMCalls:  t.llmCalls,
		Duration:  time.Since(t.start),
	}
}

// Execute answers input given the prior conversation. It never panics and
// never touches the conversation; Session applies the result.
func (a *Agent) Execute(ctx context.Context, history []model.Turn, input string) (resp Response) {
	ctx, span := tracer.Start(ctx, "agent turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.name", a.config.Name),
		attribute.Int("agent.history", len(history)),
	)

	t := &turn{state: StateAwaitingModel, start: time.Now()}
	defer func() {
		span.SetAttributes(
			attribute.String("agent.state", resp.State.String()),
			attribute.Int("agent.tool_calls", len(resp.ToolCalls)),
			attribute.Int("agent.llm_calls", resp.LLMCalls),
		)
		if resp.Err != nil {
			span.RecordError(resp.Err)
			span.SetStatus(codes.Error, resp.State.String())
		}
	}()

	release, err := a.connect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return a.cancelled(t, ctx.Err())
		}
		return a.fail(t, a.config.Fallbacks.General, fmt.Errorf("failed to connect resources: %w", err))
	}
	defer release()

	definitions := a.registry.Definitions()

	for {
		t.iteration++
		if t.iteration > a.config.MaxIterations {
			return a.fail(t, a.config.Fallbacks.General,
				fmt.Errorf("%w: %d model calls", ErrIterationLimit, a.config.MaxIterations))
		}
		if ctx.Err() != nil {
			return a.cancelled(t, ctx.Err())
		}

		t.state = StateAwaitingModel
		messages := BuildPrompt(a.config.SystemPrompt, history, input, t.scratchpad)
		a.logger.Debug("calling model",
			"agent", a.config.Name, "iteration", t.iteration, "messages", len(messages))

		reply, err := a.callModel(ctx, t, messages, definitions)
		if err != nil {
			if ctx.Err() != nil {
				return a.cancelled(t, ctx.Err())
			}
			return a.fail(t, a.config.Fallbacks.General, fmt.Errorf("failed to reason: %w", err))
		}

		if !reply.HasToolCalls() {
			answer := strings.TrimSpace(reply.Content)
			if answer == "" {
				return a.fail(t, a.config.Fallbacks.General,
					&MalformedResponseError{Reason: "reply has neither text nor a tool call"})
			}
			t.state = StateDone
			t.record("answered", nil)
			a.logger.Info("turn complete", "agent", a.config.Name,
				"iterations", t.iteration, "tool_calls", len(t.scratchpad))
			return t.response(answer, nil)
		}

		if extra := len(reply.ToolCalls) - 1; extra > 0 {
			a.logger.Warn("dropping extra tool calls", "agent", a.config.Name, "dropped", extra)
		}
		call := reply.ToolCalls[0]

		kind, err := tools.ParseKind(call.Name)
		if err != nil {
			return a.fail(t, a.config.Fallbacks.General,
				&MalformedResponseError{Tool: call.Name, Reason: "unknown tool", Err: err})
		}
		toolInput, err := tools.ParseInput(call.Arguments)
		if err != nil {
			return a.fail(t, a.fallbackFor(kind),
				&MalformedResponseError{Tool: call.Name, Reason: "bad arguments", Err: err})
		}

		id := call.ID
		if id == "" || t.scratchpad.Has(id) {
			id = t.scratchpad.NextID()
		}

		t.state = StateExecutingTool
		name := kind.String()
		t.record("calling "+name, &name)

		outcome := a.registry.Execute(ctx, kind, toolInput)
		record := model.ToolCall{
			ID:         id,
			Tool:       name,
			Input:      toolInput,
			Output:     outcome.Output,
			Attempts:   outcome.Attempts,
			DurationMs: uint64(outcome.Duration.Milliseconds()),
		}
		if outcome.Err != nil {
			record.Output = ""
			record.Error = outcome.Err.Error()
			t.scratchpad = append(t.scratchpad, record)
			if ctx.Err() != nil {
				return a.cancelled(t, ctx.Err())
			}
			return a.fail(t, a.fallbackFor(kind), outcome.Err)
		}
		t.scratchpad = append(t.scratchpad, record)
		a.logger.Debug("tool finished", "tool", name,
			"attempts", outcome.Attempts, "output_bytes", len(outcome.Output))
	}
}

// callModel asks the model for the next step, retrying transient failures.
func (a *Agent) callModel(ctx context.Context, t *turn, messages []llm.ChatMessage, definitions []llm.ToolDefinition) (llm.LLMResponse, error) {
	policy := backoff.Default()
	policy.Attempts = a.config.ModelRetries
	if a.config.RetryBaseDelay > 0 {
		policy.BaseDelay = a.config.RetryBaseDelay
	}

	var reply llm.LLMResponse
	_, err := backoff.Do(ctx, policy, retryModel, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			a.logger.Warn("retrying model call", "agent", a.config.Name, "attempt", attempt)
		}
		t.llmCalls++
		attemptCtx, cancel := context.WithTimeout(ctx, a.config.ModelTimeout)
		defer cancel()
		resp, err := a.chatOnce(attemptCtx, messages, definitions)
		if err != nil {
			return err
		}
		reply = resp
		return nil
	})
	if err != nil {
		return llm.LLMResponse{}, err
	}
	t.usage.Add(reply.Usage)
	return reply, nil
}

// chatOnce runs a single model attempt, turning a panic in the provider
// into a permanent model failure.
func (a *Agent) chatOnce(ctx context.Context, messages []llm.ChatMessage, definitions []llm.ToolDefinition) (reply llm.LLMResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = llm.LLMResponse{}
			err = &llm.ModelUnavailableError{
				Provider: fmt.Sprintf("%T", a.llmClient.Provider()),
				Err:      fmt.Errorf("provider panicked: %v", r),
			}
		}
	}()
	return a.llmClient.ChatWithTools(ctx, messages, definitions)
}

// retryModel retries transient provider failures and attempts that ran
// past ModelTimeout. backoff.Do stops first when the turn itself is done.
func retryModel(err error) bool {
	return llm.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
}

// connect opens every resource and returns a function closing them in
// reverse order. On error, resources already opened are closed.
func (a *Agent) connect(ctx context.Context) (func(), error) {
	opened := make([]Resource, 0, len(a.resources))
	release := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			if err := opened[i].Close(); err != nil {
				a.logger.Warn("failed to close resource", "error", err)
			}
		}
	}
	for _, r := range a.resources {
		if err := r.Connect(ctx); err != nil {
			release()
			return nil, err
		}
		opened = append(opened, r)
	}
	return release, nil
}

func (a *Agent) fallbackFor(kind tools.Kind) string {
	if msg := a.registry.Fallback(kind); msg != "" {
		return msg
	}
	return a.config.Fallbacks.General
}

func (a *Agent) fail(t *turn, fallback string, err error) Response {
	t.state = StateFailed
	t.record(err.Error(), nil)
	a.logger.Error("turn failed", "agent", a.config.Name,
		"iteration", t.iteration, "error", err)
	return t.response(fallback, err)
}

func (a *Agent) cancelled(t *turn, err error) Response {
	t.state = StateFailed
	t.record("cancelled", nil)
	a.logger.Info("turn cancelled", "agent", a.config.Name, "error", err)
	resp := t.response("", err)
	resp.Cancelled = true
	return resp
}
