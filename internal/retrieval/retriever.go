// Package retrieval answers part queries from the catalog: embed the query
// with the ingestion engine and return the nearest listings.
package retrieval

import (
	"context"
	"fmt"

	"partscout/internal/embedding"
	"partscout/internal/logging"
	"partscout/internal/store"
	"partscout/internal/types"
)

// Retriever performs query-time k-NN lookups.
type Retriever struct {
	engine  embedding.EmbeddingEngine
	catalog *store.Catalog
}

// New creates a Retriever over the shared engine and catalog.
func New(engine embedding.EmbeddingEngine, catalog *store.Catalog) *Retriever {
	return &Retriever{engine: engine, catalog: catalog}
}

// Retrieve returns up to topK matches for the query, nearest first. An empty
// catalog yields an empty result and nil error; "no results" is an answer,
// not a failure.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (types.RetrievalResult, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Retrieve")
	defer timer.Stop()

	vec, err := r.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	result, err := r.catalog.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	logging.Retrieval("Query %q returned %d matches (topK=%d)", query, len(result), topK)
	return result, nil
}

// HealthCheck distinguishes "system unavailable" from "no results": it probes
// the catalog and, when the engine supports it, the embedding backend.
func (r *Retriever) HealthCheck(ctx context.Context) error {
	if _, err := r.catalog.Count(ctx); err != nil {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	if hc, ok := r.engine.(embedding.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding engine unavailable: %w", err)
		}
	}
	return nil
}
