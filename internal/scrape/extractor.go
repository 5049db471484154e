package scrape

import (
	"context"

	"partscout/internal/types"
)

// Extractor retrieves raw listings for a query from one marketplace.
// Implementations absorb their own failures: a total miss returns an empty
// slice plus the error for the run summary, and a partial miss returns
// whatever survived. A failing source never takes down the run.
type Extractor interface {
	// Source returns the marketplace tag recorded on every raw record.
	Source() string

	// SearchURL returns the listing URL queried for a term, for run
	// summaries. API-backed sources return their endpoint.
	SearchURL(query string) string

	// Extract fetches and parses up to limit raw records for the query.
	Extract(ctx context.Context, query string, limit int) ([]types.RawRecord, error)
}
