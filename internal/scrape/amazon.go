package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"partscout/internal/fetch"
	"partscout/internal/logging"
	"partscout/internal/types"
)

// Amazon result grids cycle through several container shapes depending on
// experiment bucket; the cascade covers the ones seen in the wild, most
// specific first.
var amazonContainers = []Selector{
	{Query: "div[data-component-type='s-search-result']"},
	{Query: "div.s-result-item[data-asin]"},
	{Query: "div[data-asin]"},
}

var (
	amazonTitleQueries  = []string{"h2 a span", "h2 span", "h2 a", ".a-size-medium", ".a-size-base-plus"}
	amazonLinkQueries   = []string{"h2 a", "a.a-link-normal.s-no-outline", "a.a-link-normal"}
	amazonRatingQueries = []string{".a-icon-alt"}
	amazonReviewQueries = []string{"span.a-size-base.s-underline-text", "a span.a-size-base"}
	amazonImageQueries  = []string{"img.s-image"}
	amazonAvailQueries  = []string{".a-color-success", ".a-color-price"}
)

// minASINLen rejects placeholder containers that carry an empty or stub
// data-asin attribute.
const minASINLen = 4

// AmazonExtractor scrapes amazon.in search result pages.
type AmazonExtractor struct {
	fetcher fetch.PageFetcher
	base    string
}

// NewAmazonExtractor creates an extractor over the given fetcher and base URL.
func NewAmazonExtractor(fetcher fetch.PageFetcher, base string) *AmazonExtractor {
	return &AmazonExtractor{fetcher: fetcher, base: strings.TrimSuffix(base, "/")}
}

// Source returns the marketplace tag.
func (e *AmazonExtractor) Source() string { return types.SourceAmazon }

// SearchURL returns the search results URL for a query.
func (e *AmazonExtractor) SearchURL(query string) string {
	return fmt.Sprintf("%s/s?k=%s", e.base, url.QueryEscape(query))
}

// Extract fetches the search page and parses up to limit raw records.
func (e *AmazonExtractor) Extract(ctx context.Context, query string, limit int) ([]types.RawRecord, error) {
	searchURL := e.SearchURL(query)
	logging.Scrape("Amazon: fetching %s", searchURL)

	html, err := e.fetcher.FetchRendered(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("amazon fetch: %w", err)
	}

	// A robot interstitial sometimes clears after a longer settle; one
	// retry, then give up for this run.
	if fetch.LooksBlocked(html) {
		logging.Scrape("Amazon: robot check detected, retrying after settle")
		select {
		case <-time.After(10 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		html, err = e.fetcher.FetchRendered(ctx, searchURL)
		if err != nil {
			return nil, fmt.Errorf("amazon refetch: %w", err)
		}
		if fetch.LooksBlocked(html) {
			return nil, fmt.Errorf("amazon blocked by robot check")
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("amazon parse: %w", err)
	}

	items, step, ok := FirstSatisfying(doc.Selection, amazonContainers)
	if !ok {
		logging.Scrape("Amazon: no result containers found for %q", query)
		return nil, nil
	}
	logging.Scrape("Amazon: %d containers via cascade step %d", items.Length(), step+1)

	records := make([]types.RawRecord, 0, limit)
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}
		rec, ok := e.extractItem(item)
		if ok {
			records = append(records, rec)
		}
		return true
	})

	logging.Scrape("Amazon: extracted %d of %d containers", len(records), items.Length())
	return records, nil
}

func (e *AmazonExtractor) extractItem(item *goquery.Selection) (types.RawRecord, bool) {
	asin, _ := item.Attr("data-asin")
	asin = strings.TrimSpace(asin)
	if len(asin) < minASINLen {
		return types.RawRecord{}, false
	}

	fields := map[string]string{
		"asin":  asin,
		"title": FieldText(item, amazonTitleQueries...),
		"url":   FieldAttr(item, "href", amazonLinkQueries...),
		"price": e.extractPrice(item),
		"image": FieldAttr(item, "src", amazonImageQueries...),
	}

	// "4.3 out of 5 stars" -> "4.3"
	if alt := FieldText(item, amazonRatingQueries...); strings.Contains(alt, "out of") {
		fields["rating"] = strings.TrimSpace(strings.SplitN(alt, "out of", 2)[0])
	}

	if rc := FieldText(item, amazonReviewQueries...); looksNumeric(rc) {
		fields["review_count"] = rc
	}

	if avail := FieldText(item, amazonAvailQueries...); avail != "" {
		fields["availability"] = avail
	}
	if item.Find(".a-icon-prime").Length() > 0 {
		fields["prime"] = "true"
	}

	return types.RawRecord{Source: types.SourceAmazon, Fields: fields}, true
}

// extractPrice prefers the offscreen full price; when absent it rebuilds the
// display price from the whole and fraction spans.
func (e *AmazonExtractor) extractPrice(item *goquery.Selection) string {
	if p := FieldText(item, ".a-price .a-offscreen"); p != "" {
		return p
	}
	whole := strings.TrimSpace(item.Find(".a-price-whole").First().Text())
	if whole == "" {
		return ""
	}
	whole = strings.TrimSuffix(whole, ".")
	if frac := strings.TrimSpace(item.Find(".a-price-fraction").First().Text()); frac != "" {
		return whole + "." + frac
	}
	return whole
}

func looksNumeric(s string) bool {
	s = strings.NewReplacer(",", "", "(", "", ")", "", "+", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
