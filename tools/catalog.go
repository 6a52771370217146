package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/anko/llm"
	"github.com/richinex/anko/storage"
)

// ProductSearcher retrieves catalog entries near a query vector.
type ProductSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]storage.ScoredDocument, error)
}

// CatalogTool finds products in the store's own catalog.
type CatalogTool struct {
	embedder llm.Embedder
	products ProductSearcher
	k        int
}

// NewCatalogTool creates the product catalog tool returning up to k products.
func NewCatalogTool(embedder llm.Embedder, products ProductSearcher, k int) *CatalogTool {
	if k <= 0 {
		k = 4
	}
	return &CatalogTool{embedder: embedder, products: products, k: k}
}

func (t *CatalogTool) Kind() Kind { return KindProductCatalog }

func (t *CatalogTool) Metadata() Metadata {
	return Metadata{
		Name: KindProductCatalog.String(),
		Description: "Searches the store's product catalog for products matching the user query. " +
			"Returns the matching product records as JSON.",
		Parameters: InputSchema(),
		Fallback:   ResearchFallback,
	}
}

func (t *CatalogTool) Invoke(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", Permanent(fmt.Errorf("catalog query is empty"))
	}

	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return "", modelError(ctx, fmt.Errorf("embed query: %w", err))
	}

	hits, err := t.products.Search(ctx, vec, t.k)
	if err != nil {
		if errors.Is(err, storage.ErrNotConnected) {
			return "", Permanent(err)
		}
		return "", err
	}
	if len(hits) == 0 {
		return "No matching products found.", nil
	}

	docs := make([]storage.Document, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return storage.FormatDocuments(docs), nil
}
