package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/anko/search"
)

// TrendSearchTool looks up trending products on the web.
// The raw search response, image URLs included, is returned as JSON.
type TrendSearchTool struct {
	provider search.Provider
	opts     search.Options
}

// NewTrendSearchTool creates the web trend search tool.
func NewTrendSearchTool(provider search.Provider) *TrendSearchTool {
	return &TrendSearchTool{
		provider: provider,
		opts:     search.Options{IncludeImages: true},
	}
}

func (t *TrendSearchTool) Kind() Kind { return KindTrendSearch }

func (t *TrendSearchTool) Metadata() Metadata {
	return Metadata{
		Name: KindTrendSearch.String(),
		Description: "Searches the web for the top trending products matching the user query. " +
			"Returns the title, url and content of each result plus related image URLs.",
		Parameters: InputSchema(),
		Fallback:   ResearchFallback,
	}
}

func (t *TrendSearchTool) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", Permanent(fmt.Errorf("search query is empty"))
	}

	resp, err := t.provider.Search(ctx, query, t.opts)
	if err != nil {
		var httpErr *search.HTTPError
		if errors.As(err, &httpErr) && !httpErr.Temporary() {
			return "", Permanent(err)
		}
		return "", err
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return "", Permanent(fmt.Errorf("encode search response: %w", err))
	}
	return string(out), nil
}
