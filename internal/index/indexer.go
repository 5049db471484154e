// Package index turns canonical products into catalog rows: document text,
// one batch embedding call, idempotent upsert.
package index

import (
	"context"
	"fmt"

	"partscout/internal/embedding"
	"partscout/internal/logging"
	"partscout/internal/store"
	"partscout/internal/types"
)

// Indexer embeds and persists products. The engine here must be the same one
// the retriever queries with.
type Indexer struct {
	engine  embedding.EmbeddingEngine
	catalog *store.Catalog
}

// New creates an Indexer.
func New(engine embedding.EmbeddingEngine, catalog *store.Catalog) *Indexer {
	return &Indexer{engine: engine, catalog: catalog}
}

// Upsert embeds the products' documents in one batch and writes them under
// their composite keys. Products without a usable key are skipped and
// counted, never fatal. Returns the number of rows written.
func (ix *Indexer) Upsert(ctx context.Context, products []types.CanonicalProduct) (int, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "index.Upsert")
	defer timer.Stop()

	keyed := make([]types.CanonicalProduct, 0, len(products))
	for _, p := range products {
		if p.Key() == "" {
			continue
		}
		keyed = append(keyed, p)
	}
	if skipped := len(products) - len(keyed); skipped > 0 {
		logging.Pipeline("Indexer: skipped %d products without composite keys", skipped)
	}
	if len(keyed) == 0 {
		return 0, nil
	}

	docs := make([]string, len(keyed))
	for i, p := range keyed {
		docs[i] = p.Document()
	}

	vectors, err := ix.engine.EmbedBatch(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %d documents: %w", len(docs), err)
	}
	if len(vectors) != len(keyed) {
		return 0, fmt.Errorf("embedding count mismatch: %d vectors for %d documents", len(vectors), len(keyed))
	}

	records := make([]store.Record, len(keyed))
	for i, p := range keyed {
		records[i] = store.Record{
			ID:        p.Key(),
			Document:  docs[i],
			Embedding: vectors[i],
			Metadata:  p.Metadata(),
		}
	}

	written, err := ix.catalog.Upsert(ctx, records)
	if err != nil {
		return written, fmt.Errorf("catalog upsert: %w", err)
	}
	return written, nil
}
