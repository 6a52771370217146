package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTavilyURL is the Tavily search endpoint.
const DefaultTavilyURL = "https://api.tavily.com/search"

// Tavily implements the Provider interface for the Tavily Search API.
type Tavily struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// TavilyConfig holds configuration for the Tavily provider.
type TavilyConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// Configured reports whether a Tavily API key is set.
func (c TavilyConfig) Configured() bool {
	return c.APIKey != ""
}

// NewTavily creates a Tavily provider.
func NewTavily(cfg TavilyConfig) *Tavily {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultTavilyURL
	}
	return &Tavily{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	Query         string `json:"query"`
	IncludeImages bool   `json:"include_images"`
	MaxResults    int    `json:"max_results,omitempty"`
	SearchDepth   string `json:"search_depth,omitempty"`
}

type tavilyResponse struct {
	Query        string   `json:"query"`
	Answer       string   `json:"answer"`
	Images       []string `json:"images"`
	ResponseTime float64  `json:"response_time"`
	Results      []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		IncludeImages: opts.IncludeImages,
		MaxResults:    opts.MaxResults,
		SearchDepth:   opts.Depth,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{Provider: t.Name(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	out := &Response{
		Query:        tr.Query,
		Answer:       tr.Answer,
		Images:       tr.Images,
		ResponseTime: tr.ResponseTime,
		Results:      make([]Result, 0, len(tr.Results)),
	}
	if out.Query == "" {
		out.Query = query
	}
	for _, r := range tr.Results {
		out.Results = append(out.Results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}

var _ Provider = (*Tavily)(nil)
