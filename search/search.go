// Package search provides web search backends for the trend research tool.
//
// Each backend implements [Provider]. The tool layer serializes the
// [Response] it gets back and hands it to the model unchanged, so the
// response keeps the image URLs and relevance scores the backend returns.
package search

import (
	"context"
	"fmt"
)

// Result is a single search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Response is everything a backend returned for one query.
type Response struct {
	Query        string   `json:"query"`
	Answer       string   `json:"answer,omitempty"`
	Images       []string `json:"images,omitempty"`
	Results      []Result `json:"results"`
	ResponseTime float64  `json:"responseTime,omitempty"`
}

// Options are optional parameters for a search query.
type Options struct {
	// MaxResults caps the number of results. Zero means provider default.
	MaxResults int `json:"max_results,omitempty"`

	// IncludeImages asks the backend for related image URLs.
	IncludeImages bool `json:"include_images,omitempty"`

	// Depth is "basic" or "advanced". Empty means provider default.
	Depth string `json:"search_depth,omitempty"`
}

// Provider is the interface that search backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "tavily").
	Name() string

	// Search executes a query.
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

// HTTPError is a non-2xx answer from a search backend.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
