// Package pipeline orchestrates an ingestion run: each configured source is
// extracted, normalized, and indexed in turn, with per-source failures
// recorded in the run summary instead of aborting the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"partscout/internal/index"
	"partscout/internal/logging"
	"partscout/internal/normalize"
	"partscout/internal/scrape"
	"partscout/internal/types"
)

// Pipeline wires the ingestion stages together. Sources run sequentially:
// the DOM extractors share one browser, and marketplaces are happier with
// one visitor at a time.
type Pipeline struct {
	extractors []scrape.Extractor
	normalizer *normalize.Normalizer
	indexer    *index.Indexer

	// ArchiveDir, when set, receives a JSON dump of each run.
	ArchiveDir string
}

// New creates a Pipeline over the given stages.
func New(extractors []scrape.Extractor, normalizer *normalize.Normalizer, indexer *index.Indexer) *Pipeline {
	return &Pipeline{
		extractors: extractors,
		normalizer: normalizer,
		indexer:    indexer,
	}
}

// archiveRecord is the on-disk shape of one archived run.
type archiveRecord struct {
	types.RunSummary
	Products []types.CanonicalProduct `json:"products"`
}

// Run ingests up to limit listings per source for the query and returns the
// per-source summary. The returned error is reserved for total failure;
// individual source errors live in the summary.
func (pl *Pipeline) Run(ctx context.Context, query string, limit int) (types.RunSummary, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Run")
	defer timer.Stop()

	summary := types.RunSummary{
		RunID:      uuid.NewString(),
		Query:      query,
		MaxResults: limit,
		StartedAt:  time.Now(),
	}

	logging.Pipeline("Run %s: query=%q limit=%d sources=%d",
		summary.RunID, query, limit, len(pl.extractors))

	var archived []types.CanonicalProduct
	for _, ex := range pl.extractors {
		src := pl.runSource(ctx, ex, query, limit, &archived)
		summary.Sources = append(summary.Sources, src)

		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	if pl.ArchiveDir != "" {
		if err := pl.archive(summary, archived); err != nil {
			logging.Get(logging.CategoryPipeline).Error("Failed to archive run %s: %v", summary.RunID, err)
		}
	}

	logging.Pipeline("Run %s complete: %d products upserted", summary.RunID, summary.TotalUpserted())
	return summary, nil
}

// runSource executes one extractor end to end. Panics and errors stay inside
// the returned SourceSummary.
func (pl *Pipeline) runSource(ctx context.Context, ex scrape.Extractor, query string, limit int, archived *[]types.CanonicalProduct) (src types.SourceSummary) {
	src = types.SourceSummary{
		Source:    ex.Source(),
		SearchURL: ex.SearchURL(query),
	}

	defer func() {
		if r := recover(); r != nil {
			src.Err = fmt.Sprintf("extractor panic: %v", r)
			logging.Get(logging.CategoryPipeline).Error("Source %s panicked: %v", ex.Source(), r)
		}
	}()

	raws, err := ex.Extract(ctx, query, limit)
	if err != nil {
		src.Err = err.Error()
		logging.Pipeline("Source %s failed: %v", ex.Source(), err)
		return src
	}
	src.Found = len(raws)

	products := pl.normalizer.NormalizeAll(raws)
	src.Extracted = len(products)

	upserted, err := pl.indexer.Upsert(ctx, products)
	src.Upserted = upserted
	if err != nil {
		src.Err = err.Error()
		logging.Get(logging.CategoryPipeline).Error("Source %s index failed after %d upserts: %v", ex.Source(), upserted, err)
		return src
	}

	*archived = append(*archived, products...)
	logging.Pipeline("Source %s: found=%d extracted=%d upserted=%d",
		ex.Source(), src.Found, src.Extracted, src.Upserted)
	return src
}

// archive writes the run and its products as JSON:
// parts_<query>_<timestamp>.json under ArchiveDir.
func (pl *Pipeline) archive(summary types.RunSummary, products []types.CanonicalProduct) error {
	if err := os.MkdirAll(pl.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("parts_%s_%s.json",
		slugify(summary.Query), summary.StartedAt.Format("20060102_150405"))

	data, err := json.MarshalIndent(archiveRecord{RunSummary: summary, Products: products}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run archive: %w", err)
	}

	path := filepath.Join(pl.ArchiveDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run archive: %w", err)
	}
	logging.Pipeline("Archived run %s to %s", summary.RunID, path)
	return nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "query"
	}
	return b.String()
}
