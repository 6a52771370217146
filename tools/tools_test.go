package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/search"
	"github.com/richinex/anko/storage"
)

// stubTool fails a fixed number of times before succeeding.
type stubTool struct {
	kind     Kind
	failures int
	err      error
	output   string
	calls    atomic.Int32
	panicMsg string
	block    bool
}

func (s *stubTool) Kind() Kind { return s.kind }
func (s *stubTool) Metadata() Metadata {
	return Metadata{Name: s.kind.String(), Description: "stub " + s.kind.String(), Fallback: "stub fallback"}
}
func (s *stubTool) Invoke(ctx context.Context, input string) (string, error) {
	n := int(s.calls.Add(1))
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= s.failures {
		return "", s.err
	}
	return s.output + input, nil
}

func fastExecutor(retries uint32) *Executor {
	return NewExecutor(ToolConfig{MaxRetries: retries, TimeoutSecs: 5}, nil).WithBackoff(time.Millisecond, 5*time.Millisecond)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("weather_tool")
	assert.ErrorIs(t, err, ErrToolNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "weather_tool", nf.Name)
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestKindText(t *testing.T) {
	raw, err := json.Marshal(map[string]Kind{"tool": KindImageGeneration})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tool":"dalle_api_tool"}`, string(raw))

	var back map[string]Kind
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, KindImageGeneration, back["tool"])

	_, err = json.Marshal(KindUnknown)
	assert.Error(t, err)
}

func TestRegistryOrderAndDuplicates(t *testing.T) {
	r := NewRegistry(fastExecutor(1))
	require.NoError(t, r.Register(&stubTool{kind: KindImageGeneration}))
	require.NoError(t, r.Register(&stubTool{kind: KindTrendSearch}))
	assert.Error(t, r.Register(&stubTool{kind: KindTrendSearch}))
	assert.Error(t, r.Register(&stubTool{kind: KindUnknown}))

	desc := r.Describe()
	require.Len(t, desc, 2)
	assert.Equal(t, "dalle_api_tool", desc[0].Name)
	assert.Equal(t, "trend_search_tool", desc[1].Name)
	assert.Equal(t, desc, r.Describe(), "describe is deterministic")

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "dalle_api_tool", defs[0].Name)
	assert.Equal(t, "object", defs[0].Parameters["type"], "missing parameters default to the input schema")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "stub fallback", r.Fallback(KindTrendSearch))
	assert.Equal(t, "", r.Fallback(KindProductCatalog))
}

func TestRegistryInvoke(t *testing.T) {
	r := NewRegistry(fastExecutor(1))
	require.NoError(t, r.Register(&stubTool{kind: KindTrendSearch, output: "found: "}))

	out, err := r.Invoke(context.Background(), KindTrendSearch, "linen")
	require.NoError(t, err)
	assert.Equal(t, "found: linen", out)

	_, err = r.Invoke(context.Background(), KindProductCatalog, "x")
	assert.ErrorIs(t, err, ErrToolNotFound)

	tool, err := r.Lookup("trend_search_tool")
	require.NoError(t, err)
	assert.Equal(t, KindTrendSearch, tool.Kind())
	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecutorRetriesTransientFailures(t *testing.T) {
	tool := &stubTool{kind: KindTrendSearch, failures: 2, err: errors.New("connection reset"), output: "ok"}
	out := fastExecutor(3).Execute(context.Background(), tool, "")
	require.NoError(t, out.Err)
	assert.Equal(t, "ok", out.Output)
	assert.Equal(t, 3, out.Attempts)
}

func TestExecutorExhaustsRetries(t *testing.T) {
	tool := &stubTool{kind: KindTrendSearch, failures: 10, err: errors.New("upstream 503")}
	out := fastExecutor(3).Execute(context.Background(), tool, "")

	var execErr *ExecutionError
	require.ErrorAs(t, out.Err, &execErr)
	assert.Equal(t, 3, execErr.Attempts)
	assert.Equal(t, "trend_search_tool", execErr.Tool)
	assert.Equal(t, int32(3), tool.calls.Load())
}

func TestExecutorDoesNotRetryPermanent(t *testing.T) {
	tool := &stubTool{kind: KindTrendSearch, failures: 10, err: Permanent(errors.New("bad input"))}
	out := fastExecutor(3).Execute(context.Background(), tool, "")
	require.Error(t, out.Err)
	assert.Equal(t, 1, out.Attempts)
	assert.True(t, IsPermanent(out.Err))
}

func TestExecutorRecoversPanic(t *testing.T) {
	tool := &stubTool{kind: KindImageGeneration, panicMsg: "nil map"}
	out := fastExecutor(3).Execute(context.Background(), tool, "")
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "tool panicked: nil map")
	assert.Equal(t, int32(1), tool.calls.Load())
}

func TestExecutorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tool := &stubTool{kind: KindTrendSearch, block: true}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	out := fastExecutor(3).Execute(ctx, tool, "")
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, int32(1), tool.calls.Load())
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
}

func TestInputSchema(t *testing.T) {
	schema := InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	input, ok := props["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", input["type"])
	assert.Contains(t, schema["required"], "input")

	schema["type"] = "mutated"
	assert.Equal(t, "object", InputSchema()["type"], "callers get a copy")
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    string
		wantErr bool
	}{
		{"object", `{"input":"summer dresses"}`, "summer dresses", false},
		{"bare string", `"red dress"`, "red dress", false},
		{"fenced", "```json\n{\"input\":\"boots\"}\n```", "boots", false},
		{"empty", ``, "", true},
		{"missing key", `{"query":"x"}`, "", true},
		{"wrong type", `{"input":42}`, "", true},
		{"garbage", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(json.RawMessage(tt.args))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeSearch struct {
	resp  *search.Response
	err   error
	query string
	opts  search.Options
}

func (f *fakeSearch) Name() string { return "fake" }
func (f *fakeSearch) Search(_ context.Context, q string, opts search.Options) (*search.Response, error) {
	f.query, f.opts = q, opts
	return f.resp, f.err
}

func TestTrendSearchTool(t *testing.T) {
	fs := &fakeSearch{resp: &search.Response{
		Query:   "summer dresses",
		Images:  []string{"https://img.example/a.jpg"},
		Results: []search.Result{{Title: "Linen", URL: "https://example.com", Content: "Linen is in"}},
	}}
	tool := NewTrendSearchTool(fs)

	out, err := tool.Invoke(context.Background(), "  summer dresses ")
	require.NoError(t, err)
	assert.Equal(t, "summer dresses", fs.query)
	assert.True(t, fs.opts.IncludeImages)

	var decoded search.Response
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Linen", decoded.Results[0].Title)
	assert.Equal(t, ResearchFallback, tool.Metadata().Fallback)

	_, err = tool.Invoke(context.Background(), " ")
	assert.True(t, IsPermanent(err))

	fs.err = &search.HTTPError{Provider: "fake", StatusCode: 401}
	_, err = tool.Invoke(context.Background(), "x")
	assert.True(t, IsPermanent(err))

	fs.err = &search.HTTPError{Provider: "fake", StatusCode: 503}
	_, err = tool.Invoke(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

type fakeImages struct {
	url string
	err error
}

func (f fakeImages) GenerateImage(context.Context, string) (string, error) { return f.url, f.err }

func TestImageTool(t *testing.T) {
	out, err := NewImageTool(fakeImages{url: "https://img.example/red.png"}).Invoke(context.Background(), "a red dress")
	require.NoError(t, err)
	assert.JSONEq(t, `{"image_url":"https://img.example/red.png"}`, out)

	_, err = NewImageTool(fakeImages{}).Invoke(context.Background(), "a red dress")
	assert.ErrorIs(t, err, llm.ErrNoImageURL)
	assert.True(t, IsPermanent(err))

	_, err = NewImageTool(fakeImages{err: llm.ErrNoImageURL}).Invoke(context.Background(), "a red dress")
	assert.True(t, IsPermanent(err))

	tool := NewImageTool(fakeImages{})
	assert.Equal(t, ImageFallback, tool.Metadata().Fallback)
	assert.Equal(t, KindImageGeneration, tool.Kind())
}

type fakeProvider struct {
	reply string
	err   error
	seen  []llm.ChatMessage
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }
func (f *fakeProvider) Chat(_ context.Context, msgs []llm.ChatMessage) (llm.LLMResponse, error) {
	f.seen = msgs
	return llm.LLMResponse{Content: f.reply}, f.err
}
func (f *fakeProvider) ChatWithTools(ctx context.Context, msgs []llm.ChatMessage, _ []llm.ToolDefinition) (llm.LLMResponse, error) {
	return f.Chat(ctx, msgs)
}

func TestResearchTool(t *testing.T) {
	p := &fakeProvider{reply: "1. Linen midi dresses"}
	tool := NewResearchTool(llm.NewClient(p))

	out, err := tool.Invoke(context.Background(), "summer dresses")
	require.NoError(t, err)
	assert.Equal(t, "1. Linen midi dresses", out)
	require.Len(t, p.seen, 1)
	assert.True(t, strings.HasSuffix(p.seen[0].Content, "Research Topic: summer dresses"))

	p.err = &llm.ModelUnavailableError{Provider: "fake", Err: errors.New("401"), Retryable: false}
	_, err = tool.Invoke(context.Background(), "x")
	assert.True(t, IsPermanent(err))

	p.err = &llm.ModelUnavailableError{Provider: "fake", Err: errors.New("503"), Retryable: true}
	_, err = tool.Invoke(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

type fakeEmbedder struct {
	err   error
	calls atomic.Int32
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type fakeProducts struct {
	hits []storage.ScoredDocument
	err  error
	k    int
}

func (f *fakeProducts) Search(_ context.Context, _ []float32, k int) ([]storage.ScoredDocument, error) {
	f.k = k
	return f.hits, f.err
}

func TestCatalogTool(t *testing.T) {
	products := &fakeProducts{hits: []storage.ScoredDocument{
		{Document: storage.Document{Content: "Linen midi dress", Metadata: map[string]any{"price": 89.0}}, Score: 0.9},
	}}
	tool := NewCatalogTool(&fakeEmbedder{}, products, 0)

	out, err := tool.Invoke(context.Background(), "linen dress")
	require.NoError(t, err)
	assert.Equal(t, 4, products.k)
	assert.Equal(t, "{\n\t\"_id\": \"Linen midi dress\",\n\t\"price\": 89\n}\n\n", out)

	products.hits = nil
	out, err = tool.Invoke(context.Background(), "linen dress")
	require.NoError(t, err)
	assert.Equal(t, "No matching products found.", out)

	products.err = storage.ErrNotConnected
	_, err = tool.Invoke(context.Background(), "linen dress")
	assert.True(t, IsPermanent(err))
}

func TestCatalogToolEmbeddingErrors(t *testing.T) {
	tests := []struct {
		name      string
		retryable bool
		attempts  int
	}{
		{"missing deployment", false, 1},
		{"throttled", true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &fakeEmbedder{err: &llm.ModelUnavailableError{
				Provider: "azure", Err: errors.New("embeddings"), Retryable: tt.retryable,
			}}
			tool := NewCatalogTool(emb, &fakeProducts{}, 4)

			_, err := tool.Invoke(context.Background(), "linen dress")
			assert.Equal(t, !tt.retryable, IsPermanent(err))
			assert.ErrorIs(t, err, llm.ErrModelUnavailable)

			emb.calls.Store(0)
			out := fastExecutor(3).Execute(context.Background(), tool, "linen dress")
			require.Error(t, out.Err)
			assert.Equal(t, tt.attempts, out.Attempts)
			assert.Equal(t, int32(tt.attempts), emb.calls.Load())
		})
	}
}
