// Package types defines the data model shared across the discovery and
// recommendation pipeline: raw marketplace records, the canonical product
// schema, retrieval matches, and run summaries.
package types

import (
	"fmt"
	"time"
)

// NA is the sentinel for any field whose value could not be determined.
const NA = "N/A"

// Marketplace source tags. A CanonicalProduct carries exactly one of these.
const (
	SourceAmazon    = "amazon.in"
	SourceEbay      = "ebay.com"
	SourceIndiaMart = "indiamart.com"
)

// RawRecord is a loosely-typed bag of fields exactly as a source extractor
// found them. Shape varies by source and even by item; no invariants hold.
// RawRecords are ephemeral and discarded after normalization.
type RawRecord struct {
	Source string
	Fields map[string]string
}

// Get returns the named field or "" when absent.
func (r RawRecord) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// GetOr returns the named field or def when absent or empty.
func (r RawRecord) GetOr(key, def string) string {
	if v := r.Get(key); v != "" {
		return v
	}
	return def
}

// CanonicalProduct is the unit of truth flowing through the pipeline after
// normalization. Every field is a flat string so the record can be stored
// verbatim as vector-index metadata. Instances are immutable after creation;
// re-ingestion supersedes (never merges) the prior entry under the same key.
type CanonicalProduct struct {
	SourceID     string `json:"source_id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	URL          string `json:"url"`
	Source       string `json:"source"`
	Rating       string `json:"rating,omitempty"`
	ReviewCount  string `json:"review_count,omitempty"`
	Seller       string `json:"seller,omitempty"`
	SellerRating string `json:"seller_rating,omitempty"`
	Availability string `json:"availability,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Location     string `json:"location,omitempty"`
	Condition    string `json:"condition,omitempty"`
	ShippingCost string `json:"shipping_cost,omitempty"`
}

// Key returns the composite index key "{source}_{source_id}", or "" when the
// product lacks a usable identity and must be skipped before indexing.
func (p CanonicalProduct) Key() string {
	if p.Source == "" || p.SourceID == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s", p.Source, p.SourceID)
}

// Document returns the short text summary used for embedding.
func (p CanonicalProduct) Document() string {
	price := p.Price
	if price == "" {
		price = NA
	}
	return fmt.Sprintf("Name: %s Price: %s", p.Name, price)
}

// Metadata flattens the product into the string-keyed map persisted alongside
// its embedding. Empty optional fields are omitted rather than stored as "".
func (p CanonicalProduct) Metadata() map[string]string {
	meta := map[string]string{
		"source_id": p.SourceID,
		"name":      p.Name,
		"price":     p.Price,
		"url":       p.URL,
		"source":    p.Source,
	}
	optional := map[string]string{
		"rating":        p.Rating,
		"review_count":  p.ReviewCount,
		"seller":        p.Seller,
		"seller_rating": p.SellerRating,
		"availability":  p.Availability,
		"image_url":     p.ImageURL,
		"location":      p.Location,
		"condition":     p.Condition,
		"shipping_cost": p.ShippingCost,
	}
	for k, v := range optional {
		if v != "" {
			meta[k] = v
		}
	}
	return meta
}

// ProductFromMetadata rebuilds a CanonicalProduct from a stored metadata map.
// Unknown keys are ignored; missing keys leave zero values.
func ProductFromMetadata(meta map[string]string) CanonicalProduct {
	return CanonicalProduct{
		SourceID:     meta["source_id"],
		Name:         meta["name"],
		Price:        meta["price"],
		URL:          meta["url"],
		Source:       meta["source"],
		Rating:       meta["rating"],
		ReviewCount:  meta["review_count"],
		Seller:       meta["seller"],
		SellerRating: meta["seller_rating"],
		Availability: meta["availability"],
		ImageURL:     meta["image_url"],
		Location:     meta["location"],
		Condition:    meta["condition"],
		ShippingCost: meta["shipping_cost"],
	}
}

// IndexEntry is the persisted triple (sans embedding vector) returned from
// similarity search. The embedding itself never leaves the store.
type IndexEntry struct {
	ID       string
	Document string
	Metadata map[string]string
}

// Match pairs an index entry with its distance from the query embedding.
type Match struct {
	Entry    IndexEntry
	Distance float64
}

// Similarity converts the cosine distance into a similarity score.
func (m Match) Similarity() float64 {
	return 1 - m.Distance
}

// RetrievalResult is an ordered sequence of matches, nearest first. Produced
// fresh per query and never cached.
type RetrievalResult []Match

// Products projects the result's metadata back into canonical products,
// preserving rank order.
func (r RetrievalResult) Products() []CanonicalProduct {
	out := make([]CanonicalProduct, 0, len(r))
	for _, m := range r {
		out = append(out, ProductFromMetadata(m.Entry.Metadata))
	}
	return out
}

// Recommendation is the outcome of one query/response cycle: the model's
// single best pick plus up to five ranked alternatives drawn from retrieval.
// Unavailable distinguishes "the generative call failed" from "no results";
// callers seeing Unavailable should surface the retrieval list alone.
type Recommendation struct {
	Best         CanonicalProduct
	Reason       string
	Alternatives []CanonicalProduct
	Unavailable  bool
}

// SourceSummary reports one extractor's contribution to an ingestion run.
type SourceSummary struct {
	Source    string `json:"source"`
	SearchURL string `json:"search_url,omitempty"`
	Found     int    `json:"total_found"`
	Extracted int    `json:"successfully_extracted"`
	Upserted  int    `json:"upserted"`
	Err       string `json:"error,omitempty"`
}

// RunSummary is the operator-facing result of one ingestion run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Query      string          `json:"search_term"`
	MaxResults int             `json:"max_results_requested"`
	StartedAt  time.Time       `json:"timestamp"`
	Sources    []SourceSummary `json:"sources"`
}

// TotalUpserted sums upserts across all sources.
func (s RunSummary) TotalUpserted() int {
	n := 0
	for _, src := range s.Sources {
		n += src.Upserted
	}
	return n
}
