package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/model"
	"github.com/richinex/anko/tools"
)

// scriptedProvider replays one step per model call. A step is either a
// reply or an error; when the script runs out the last step repeats.
type scriptedProvider struct {
	mu    sync.Mutex
	steps []step
	calls [][]llm.ChatMessage
	tools [][]llm.ToolDefinition
}

type step struct {
	reply llm.LLMResponse
	err   error
	wait  chan struct{}
}

func answerStep(text string) step { return step{reply: llm.LLMResponse{Content: text}} }

func callTool(name, input string) step {
	args, _ := json.Marshal(map[string]string{"input": input})
	return step{reply: llm.LLMResponse{ToolCalls: []llm.ToolCall{{ID: "call_" + name, Name: name, Arguments: args}}}}
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Chat(ctx context.Context, msgs []llm.ChatMessage) (llm.LLMResponse, error) {
	return p.ChatWithTools(ctx, msgs, nil)
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, msgs []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	p.mu.Lock()
	i := len(p.calls)
	p.calls = append(p.calls, append([]llm.ChatMessage(nil), msgs...))
	p.tools = append(p.tools, defs)
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	s := p.steps[i]
	p.mu.Unlock()

	if s.wait != nil {
		select {
		case <-s.wait:
		case <-ctx.Done():
			return llm.LLMResponse{}, ctx.Err()
		}
	}
	return s.reply, s.err
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *scriptedProvider) lastCall() []llm.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

// fakeTool returns output, or err, and counts invocations.
type fakeTool struct {
	kind     tools.Kind
	output   string
	err      error
	fallback string
	calls    atomic.Int32
	inputs   []string
	started  chan struct{}
	mu       sync.Mutex
}

func (f *fakeTool) Kind() tools.Kind { return f.kind }
func (f *fakeTool) Metadata() tools.Metadata {
	return tools.Metadata{Name: f.kind.String(), Description: "fake " + f.kind.String(), Fallback: f.fallback}
}
func (f *fakeTool) Invoke(ctx context.Context, input string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.output, f.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRegistry(t *testing.T, ts ...tools.Tool) *tools.Registry {
	t.Helper()
	exec := tools.NewExecutor(tools.ToolConfig{MaxRetries: 2, TimeoutSecs: 5}, discard).
		WithBackoff(time.Millisecond, time.Millisecond)
	r := tools.NewRegistry(exec)
	for _, tool := range ts {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func newAgent(p llm.Provider, r *tools.Registry) *Agent {
	cfg := NewBuilder("anko").
		SystemPrompt("You are AnkoAI.").
		MaxIterations(4).
		ModelRetries(3).
		RetryBaseDelay(time.Millisecond).
		Build()
	return New(cfg, p, r).WithLogger(discard)
}

func searchTool() *fakeTool {
	return &fakeTool{
		kind:     tools.KindTrendSearch,
		output:   `{"results":[{"title":"Linen midi dresses","url":"https://example.com"}]}`,
		fallback: tools.ResearchFallback,
	}
}

func imageTool() *fakeTool {
	return &fakeTool{
		kind:     tools.KindImageGeneration,
		output:   `{"image_url":"https://img.example/red.png"}`,
		fallback: tools.ImageFallback,
	}
}

func TestSummerDressesResearch(t *testing.T) {
	search := searchTool()
	p := &scriptedProvider{steps: []step{
		callTool("trend_search_tool", "trending summer dresses"),
		answerStep("Linen midi dresses are trending. Want images?"),
	}}
	s := NewSession("s1", newAgent(p, newRegistry(t, search, imageTool())))

	resp := s.Run(context.Background(), "What are the trending dresses for summer?")

	require.Equal(t, StateDone, resp.State)
	assert.NoError(t, resp.Err)
	assert.Equal(t, "Linen midi dresses are trending. Want images?", resp.Answer)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "trend_search_tool", resp.ToolCalls[0].Tool)
	assert.Equal(t, "trending summer dresses", resp.ToolCalls[0].Input)
	assert.Equal(t, 1, resp.ToolCalls[0].Attempts)
	assert.Equal(t, 2, resp.LLMCalls)
	assert.Equal(t, int32(1), search.calls.Load())

	// Second model call sees the tool call and its result after the user input.
	msgs := p.lastCall()
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "call_trend_search_tool", msgs[2].ToolCalls[0].ID)
	assert.Equal(t, llm.RoleTool, msgs[3].Role)
	assert.Equal(t, "call_trend_search_tool", msgs[3].ToolCallID)
	assert.Equal(t, search.output, msgs[3].Content)

	// Both tools were offered to the model.
	require.Len(t, p.tools[0], 2)

	hist := s.History()
	require.Len(t, hist, 2)
	assert.Equal(t, model.UserTurn("What are the trending dresses for summer?"), hist[0])
	assert.Equal(t, model.AssistantTurn(resp.Answer), hist[1])
}

func TestRedDressImage(t *testing.T) {
	images := imageTool()
	p := &scriptedProvider{steps: []step{
		callTool("dalle_api_tool", "a flowing red summer dress"),
		answerStep(`{'image_url': 'https://img.example/red.png'} Would you like another color?`),
	}}
	s := NewSession("s1", newAgent(p, newRegistry(t, searchTool(), images)))

	answer, err := s.Respond(context.Background(), "Generate an image of a red dress")
	require.NoError(t, err)
	assert.Contains(t, answer, "https://img.example/red.png")
	assert.Equal(t, int32(1), images.calls.Load())
	assert.Equal(t, []string{"a flowing red summer dress"}, images.inputs)
}

func TestImageFailureUsesImageFallback(t *testing.T) {
	images := imageTool()
	images.err = tools.Permanent(llm.ErrNoImageURL)
	p := &scriptedProvider{steps: []step{
		callTool("dalle_api_tool", "a red dress"),
		answerStep("should not be reached"),
	}}
	s := NewSession("s1", newAgent(p, newRegistry(t, searchTool(), images)))

	resp := s.Run(context.Background(), "Generate an image of a red dress")

	assert.Equal(t, StateFailed, resp.State)
	assert.False(t, resp.Cancelled)
	assert.Equal(t, tools.ImageFallback, resp.Answer)
	var execErr *tools.ExecutionError
	require.ErrorAs(t, resp.Err, &execErr)
	assert.ErrorIs(t, resp.Err, llm.ErrNoImageURL)
	require.Len(t, resp.ToolCalls, 1)
	assert.True(t, resp.ToolCalls[0].Failed())
	assert.Equal(t, 1, p.callCount())

	hist := s.History()
	require.Len(t, hist, 2)
	assert.Equal(t, tools.ImageFallback, hist[1].Content)
}

func TestToolRetriesThenFails(t *testing.T) {
	search := searchTool()
	search.err = errors.New("connection reset")
	p := &scriptedProvider{steps: []step{callTool("trend_search_tool", "boots")}}
	a := newAgent(p, newRegistry(t, search))

	resp := a.Execute(context.Background(), nil, "boots?")
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.Equal(t, int32(2), search.calls.Load())
	assert.Equal(t, 2, resp.ToolCalls[0].Attempts)
}

func TestUnknownToolFails(t *testing.T) {
	search := searchTool()
	p := &scriptedProvider{steps: []step{callTool("weather_tool", "Paris")}}
	a := newAgent(p, newRegistry(t, search))

	resp := a.Execute(context.Background(), nil, "weather?")
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.ErrorIs(t, resp.Err, ErrMalformedResponse)
	assert.ErrorIs(t, resp.Err, tools.ErrToolNotFound)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, int32(0), search.calls.Load())
	assert.Equal(t, 1, p.callCount(), "malformed replies are not retried")
}

func TestKnownButUnregisteredToolFails(t *testing.T) {
	p := &scriptedProvider{steps: []step{callTool("product_catalog_tool", "linen")}}
	a := newAgent(p, newRegistry(t, searchTool()))

	resp := a.Execute(context.Background(), nil, "linen?")
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.ErrorIs(t, resp.Err, tools.ErrToolNotFound)
}

func TestBadArgumentsUseToolFallback(t *testing.T) {
	p := &scriptedProvider{steps: []step{{reply: llm.LLMResponse{ToolCalls: []llm.ToolCall{
		{ID: "c1", Name: "dalle_api_tool", Arguments: json.RawMessage(`{"prompt": 3}`)},
	}}}}}
	a := newAgent(p, newRegistry(t, imageTool()))

	resp := a.Execute(context.Background(), nil, "draw")
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, tools.ImageFallback, resp.Answer)
	var malformed *MalformedResponseError
	require.ErrorAs(t, resp.Err, &malformed)
	assert.Equal(t, "dalle_api_tool", malformed.Tool)
}

func TestEmptyReplyIsMalformed(t *testing.T) {
	p := &scriptedProvider{steps: []step{answerStep("   ")}}
	resp := newAgent(p, newRegistry(t)).Execute(context.Background(), nil, "hi")
	assert.Equal(t, StateFailed, resp.State)
	assert.ErrorIs(t, resp.Err, ErrMalformedResponse)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
}

func TestOnlyFirstToolCallExecuted(t *testing.T) {
	search, images := searchTool(), imageTool()
	args := json.RawMessage(`{"input":"x"}`)
	p := &scriptedProvider{steps: []step{
		{reply: llm.LLMResponse{ToolCalls: []llm.ToolCall{
			{ID: "a", Name: "trend_search_tool", Arguments: args},
			{ID: "b", Name: "dalle_api_tool", Arguments: args},
		}}},
		answerStep("done"),
	}}
	resp := newAgent(p, newRegistry(t, search, images)).Execute(context.Background(), nil, "both please")

	require.Equal(t, StateDone, resp.State)
	assert.Equal(t, int32(1), search.calls.Load())
	assert.Equal(t, int32(0), images.calls.Load())
	require.Len(t, resp.ToolCalls, 1)

	toolMsgs := 0
	for _, m := range p.lastCall() {
		toolMsgs += len(m.ToolCalls)
	}
	assert.Equal(t, 1, toolMsgs)
}

func TestIterationLimit(t *testing.T) {
	search := searchTool()
	p := &scriptedProvider{steps: []step{callTool("trend_search_tool", "again")}}
	resp := newAgent(p, newRegistry(t, search)).Execute(context.Background(), nil, "loop forever")

	assert.Equal(t, StateFailed, resp.State)
	assert.ErrorIs(t, resp.Err, ErrIterationLimit)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.Equal(t, 4, p.callCount())
	assert.Equal(t, int32(4), search.calls.Load())
	assert.Len(t, resp.ToolCalls, 4)
}

func TestModelRetriesTransientErrors(t *testing.T) {
	transient := &llm.ModelUnavailableError{Provider: "scripted", Err: errors.New("503"), Retryable: true}
	p := &scriptedProvider{steps: []step{{err: transient}, {err: transient}, answerStep("recovered")}}
	resp := newAgent(p, newRegistry(t)).Execute(context.Background(), nil, "hi")

	require.Equal(t, StateDone, resp.State)
	assert.Equal(t, "recovered", resp.Answer)
	assert.Equal(t, 3, resp.LLMCalls)
}

func TestModelUnavailableFails(t *testing.T) {
	tests := []struct {
		name      string
		retryable bool
		calls     int
	}{
		{"transient exhausted", true, 3},
		{"permanent", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{steps: []step{{err: &llm.ModelUnavailableError{
				Provider: "scripted", Err: errors.New("down"), Retryable: tt.retryable,
			}}}}
			s := NewSession("s", newAgent(p, newRegistry(t)))
			resp := s.Run(context.Background(), "hi")

			assert.Equal(t, StateFailed, resp.State)
			assert.ErrorIs(t, resp.Err, llm.ErrModelUnavailable)
			assert.Equal(t, tools.ResearchFallback, resp.Answer)
			assert.Equal(t, tt.calls, p.callCount())
			assert.Equal(t, 2, len(s.History()), "failed turns are still recorded")
		})
	}
}

// panickingProvider fails the way a broken SDK would.
type panickingProvider struct{ calls atomic.Int32 }

func (p *panickingProvider) Name() string  { return "panicking" }
func (p *panickingProvider) Model() string { return "panicking-1" }
func (p *panickingProvider) Chat(ctx context.Context, msgs []llm.ChatMessage) (llm.LLMResponse, error) {
	return p.ChatWithTools(ctx, msgs, nil)
}
func (p *panickingProvider) ChatWithTools(context.Context, []llm.ChatMessage, []llm.ToolDefinition) (llm.LLMResponse, error) {
	p.calls.Add(1)
	var headers map[string]string
	headers["x-request-id"] = "1"
	return llm.LLMResponse{}, nil
}

func TestProviderPanicFailsTurn(t *testing.T) {
	p := &panickingProvider{}
	s := NewSession("s", newAgent(p, newRegistry(t)))

	var resp Response
	require.NotPanics(t, func() { resp = s.Run(context.Background(), "hi") })

	assert.Equal(t, StateFailed, resp.State)
	assert.False(t, resp.Cancelled)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.ErrorIs(t, resp.Err, llm.ErrModelUnavailable)
	assert.ErrorContains(t, resp.Err, "provider panicked")
	assert.Equal(t, int32(1), p.calls.Load(), "a panic is not retried")
	assert.Len(t, s.History(), 2)
}

func TestModelAttemptTimeoutIsRetried(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)
	p := &scriptedProvider{steps: []step{{wait: hang}, answerStep("second try")}}
	cfg := NewBuilder("anko").
		ModelRetries(3).
		RetryBaseDelay(time.Millisecond).
		ModelTimeout(20 * time.Millisecond).
		Build()
	resp := New(cfg, p, newRegistry(t)).WithLogger(discard).Execute(context.Background(), nil, "hi")

	require.Equal(t, StateDone, resp.State)
	assert.Equal(t, "second try", resp.Answer)
	assert.Equal(t, 2, resp.LLMCalls)
}

func TestModelAttemptTimeoutExhaustsRetries(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)
	p := &scriptedProvider{steps: []step{{wait: hang}}}
	cfg := NewBuilder("anko").
		ModelRetries(2).
		RetryBaseDelay(time.Millisecond).
		ModelTimeout(10 * time.Millisecond).
		Build()
	resp := New(cfg, p, newRegistry(t)).WithLogger(discard).Execute(context.Background(), nil, "hi")

	assert.Equal(t, StateFailed, resp.State)
	assert.False(t, resp.Cancelled)
	assert.ErrorIs(t, resp.Err, context.DeadlineExceeded)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.Equal(t, 2, p.callCount())
}

func TestHistoryGrowsByTwoPerTurn(t *testing.T) {
	p := &scriptedProvider{steps: []step{answerStep("one"), answerStep(""), answerStep("three")}}
	s := NewSession("s", newAgent(p, newRegistry(t)))

	for i := 1; i <= 3; i++ {
		_, err := s.Respond(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		assert.Equal(t, 2*i, len(s.History()))
	}

	hist := s.History()
	assert.Equal(t, "one", hist[1].Content)
	assert.Equal(t, tools.ResearchFallback, hist[3].Content)
	assert.Equal(t, "three", hist[5].Content)

	// The third call saw the first two exchanges as history.
	msgs := p.lastCall()
	require.Len(t, msgs, 6)
	assert.Equal(t, "question 1", msgs[1].Content)
	assert.Equal(t, "one", msgs[2].Content)
	assert.Equal(t, "question 3", msgs[5].Content)
}

func TestHistoryIsACopy(t *testing.T) {
	p := &scriptedProvider{steps: []step{answerStep("hello")}}
	s := NewSession("s", newAgent(p, newRegistry(t)))
	_, _ = s.Respond(context.Background(), "hi")

	hist := s.History()
	hist[0].Content = "tampered"
	assert.Equal(t, "hi", s.History()[0].Content)
}

func TestCloseCancelsInFlightTurn(t *testing.T) {
	search := searchTool()
	search.started = make(chan struct{})
	p := &scriptedProvider{steps: []step{callTool("trend_search_tool", "slow")}}
	s := NewSession("s", newAgent(p, newRegistry(t, search)))

	go func() {
		<-search.started
		s.Close()
	}()

	answer, err := s.Respond(context.Background(), "search slowly")
	assert.Empty(t, answer)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Empty(t, s.History(), "cancelled turns append nothing")
	assert.True(t, s.Closed())

	_, err = s.Respond(context.Background(), "again")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCallerCancellationDuringModelCall(t *testing.T) {
	wait := make(chan struct{})
	p := &scriptedProvider{steps: []step{{wait: wait}}}
	s := NewSession("s", newAgent(p, newRegistry(t)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for p.callCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	resp := s.Run(ctx, "hi")
	assert.True(t, resp.Cancelled)
	assert.ErrorIs(t, resp.Err, context.Canceled)
	assert.Empty(t, s.History())
	assert.False(t, s.Closed())
}

func TestTurnsOnASessionDoNotInterleave(t *testing.T) {
	p := &scriptedProvider{steps: []step{answerStep("ok")}}
	s := NewSession("s", newAgent(p, newRegistry(t)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Respond(context.Background(), fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	hist := s.History()
	require.Len(t, hist, 16)
	for i := 0; i < len(hist); i += 2 {
		assert.Equal(t, model.RoleUser, hist[i].Role)
		assert.Equal(t, model.RoleAssistant, hist[i+1].Role)
	}
}

type fakeResource struct {
	connects, closes atomic.Int32
	err              error
}

func (r *fakeResource) Connect(context.Context) error {
	if r.err != nil {
		return r.err
	}
	r.connects.Add(1)
	return nil
}

func (r *fakeResource) Close() error {
	r.closes.Add(1)
	return nil
}

func TestResourcesScopedToTurn(t *testing.T) {
	res := &fakeResource{}
	p := &scriptedProvider{steps: []step{answerStep("ok")}}
	s := NewSession("s", newAgent(p, newRegistry(t)).WithResources(res))

	for i := 0; i < 3; i++ {
		_, err := s.Respond(context.Background(), "hi")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), res.connects.Load())
	assert.Equal(t, int32(3), res.closes.Load())
}

func TestResourceConnectFailure(t *testing.T) {
	good := &fakeResource{}
	bad := &fakeResource{err: errors.New("db down")}
	p := &scriptedProvider{steps: []step{answerStep("ok")}}
	a := newAgent(p, newRegistry(t)).WithResources(good, bad)

	resp := a.Execute(context.Background(), nil, "hi")
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, tools.ResearchFallback, resp.Answer)
	assert.Equal(t, 0, p.callCount())
	assert.Equal(t, int32(1), good.closes.Load(), "already connected resources are released")
}

func TestStepsTrace(t *testing.T) {
	p := &scriptedProvider{steps: []step{callTool("trend_search_tool", "x"), answerStep("done")}}
	resp := newAgent(p, newRegistry(t, searchTool())).Execute(context.Background(), nil, "x")

	require.Len(t, resp.Steps, 2)
	assert.Equal(t, StateExecutingTool.String(), resp.Steps[0].State)
	require.NotNil(t, resp.Steps[0].Action)
	assert.Equal(t, "trend_search_tool", *resp.Steps[0].Action)
	assert.Equal(t, StateDone.String(), resp.Steps[1].State)
	assert.Equal(t, 2, resp.Steps[1].Iteration)
	assert.True(t, resp.Succeeded())
}

func TestMissingToolCallIDIsSynthesized(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{reply: llm.LLMResponse{ToolCalls: []llm.ToolCall{{Name: "trend_search_tool", Arguments: json.RawMessage(`{"input":"x"}`)}}}},
		answerStep("done"),
	}}
	resp := newAgent(p, newRegistry(t, searchTool())).Execute(context.Background(), nil, "x")
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "call_1", p.lastCall()[3].ToolCallID)
}

func TestToolCallIDsUniqueAcrossIterations(t *testing.T) {
	search := func(id string) step {
		return step{reply: llm.LLMResponse{ToolCalls: []llm.ToolCall{{
			ID: id, Name: "trend_search_tool", Arguments: json.RawMessage(`{"input":"linen"}`),
		}}}}
	}
	p := &scriptedProvider{steps: []step{search(""), search("call_1"), search(""), answerStep("done")}}
	resp := newAgent(p, newRegistry(t, searchTool())).Execute(context.Background(), nil, "x")

	require.Equal(t, StateDone, resp.State)
	require.Len(t, resp.ToolCalls, 3)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "call_2", resp.ToolCalls[1].ID, "a repeated id is replaced")
	assert.Equal(t, "call_3", resp.ToolCalls[2].ID)
}

func TestBuilderDefaults(t *testing.T) {
	cfg := NewBuilder("x").Build()
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultModelRetries, cfg.ModelRetries)
	assert.Equal(t, DefaultModelTimeout, cfg.ModelTimeout)
	assert.Equal(t, tools.ResearchFallback, cfg.Fallbacks.General)
	assert.Contains(t, cfg.SystemPrompt, "x")

	cfg = NewBuilder("x").Fallback("nope").MaxIterations(2).Build()
	assert.Equal(t, "nope", cfg.Fallbacks.General)
	assert.Equal(t, 2, cfg.MaxIterations)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_model", StateAwaitingModel.String())
	assert.Equal(t, "executing_tool", StateExecutingTool.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(StateFailed)
	require.NoError(t, err)
	assert.JSONEq(t, `"failed"`, string(data))

	var s State
	require.NoError(t, json.Unmarshal([]byte(`"executing_tool"`), &s))
	assert.Equal(t, StateExecutingTool, s)
	assert.Error(t, json.Unmarshal([]byte(`"sleeping"`), &s))
}
