package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"partscout/internal/fetch"
	"partscout/internal/logging"
	"partscout/internal/types"
)

// IndiaMART listing markup is far less stable than Amazon's, so the container
// cascade requires more than three matches before trusting a selector; a few
// stray hits are more likely chrome than a result grid.
var indiamartContainers = []Selector{
	{Query: "div.prd-card", MinMatches: 4},
	{Query: "div.listing-card", MinMatches: 4},
	{Query: "div.prod-card", MinMatches: 4},
	{Query: "li.lst-itm", MinMatches: 4},
	{Query: "div[class*='product']", MinMatches: 4},
	{Query: "div[class*='card']", MinMatches: 4},
}

var (
	indiamartNameQueries     = []string{"div.producttitle a", ".prd-name a", "a.product-title", "h2 a", "h3 a", "a[title]"}
	indiamartPriceQueries    = []string{".price", ".prc", "p.price", "span.prc", "[class*='price']"}
	indiamartCompanyQueries  = []string{".companyname a", ".cmpny-name", "[class*='company']"}
	indiamartLocationQueries = []string{".cty", ".city-name", "[class*='location']", "[class*='city']"}
)

// Anchors pointing at product pages carry one of these path keywords; the
// link harvest uses them when no container selector survives a redesign.
var productPathKeywords = []string{"proddetail", "product", "item"}

// harvestNameFloor rejects anchor texts too short to be product names.
const harvestNameFloor = 5

// IndiaMartExtractor scrapes indiamart.com search pages, falling back to a
// raw link harvest and then to a site-scoped web search when the listing
// markup yields nothing.
type IndiaMartExtractor struct {
	fetcher    fetch.PageFetcher
	base       string
	searchBase string // web search engine endpoint for the site-scoped fallback
}

// NewIndiaMartExtractor creates an extractor over the given fetcher.
func NewIndiaMartExtractor(fetcher fetch.PageFetcher, base, searchBase string) *IndiaMartExtractor {
	return &IndiaMartExtractor{
		fetcher:    fetcher,
		base:       strings.TrimSuffix(base, "/"),
		searchBase: searchBase,
	}
}

// Source returns the marketplace tag.
func (e *IndiaMartExtractor) Source() string { return types.SourceIndiaMart }

// SearchURL returns the directory search URL for a query.
func (e *IndiaMartExtractor) SearchURL(query string) string {
	return fmt.Sprintf("%s/search.mp?ss=%s", e.base, url.QueryEscape(query))
}

// Extract runs the three-stage cascade: container selectors, link harvest,
// then the site-scoped web search.
func (e *IndiaMartExtractor) Extract(ctx context.Context, query string, limit int) ([]types.RawRecord, error) {
	searchURL := e.SearchURL(query)
	logging.Scrape("IndiaMART: fetching %s", searchURL)

	html, err := e.fetcher.FetchRendered(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("indiamart fetch: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("indiamart parse: %w", err)
	}

	if records := e.extractContainers(doc, limit); len(records) > 0 {
		return records, nil
	}

	logging.Scrape("IndiaMART: no containers satisfied, harvesting product links")
	if records := HarvestProductLinks(doc, types.SourceIndiaMart, limit); len(records) > 0 {
		return records, nil
	}

	if e.searchBase == "" {
		return nil, nil
	}
	logging.Scrape("IndiaMART: link harvest empty, trying site-scoped web search")
	return e.siteSearch(ctx, query, limit)
}

func (e *IndiaMartExtractor) extractContainers(doc *goquery.Document, limit int) []types.RawRecord {
	items, step, ok := FirstSatisfying(doc.Selection, indiamartContainers)
	if !ok {
		return nil
	}
	logging.Scrape("IndiaMART: %d containers via cascade step %d", items.Length(), step+1)

	records := make([]types.RawRecord, 0, limit)
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}

		name := FieldText(item, indiamartNameQueries...)
		href := FieldAttr(item, "href", indiamartNameQueries...)
		if name == "" || href == "" {
			return true
		}

		price := FieldText(item, indiamartPriceQueries...)
		if price == "" {
			// B2B listings frequently render "Ask Price" with no class.
			price = TextContaining(item, "Ask Price")
		}

		records = append(records, types.RawRecord{
			Source: types.SourceIndiaMart,
			Fields: map[string]string{
				"name":     name,
				"url":      href,
				"price":    price,
				"company":  FieldText(item, indiamartCompanyQueries...),
				"location": FieldText(item, indiamartLocationQueries...),
			},
		})
		return true
	})
	return records
}

// siteSearch queries the configured web search engine with a site: operator,
// collects result links into the marketplace, and emits title-only records.
func (e *IndiaMartExtractor) siteSearch(ctx context.Context, query string, limit int) ([]types.RawRecord, error) {
	q := fmt.Sprintf("site:indiamart.com %s", query)
	searchURL := fmt.Sprintf("%s?q=%s", e.searchBase, url.QueryEscape(q))

	html, err := e.fetcher.FetchRendered(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("indiamart site search: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("indiamart site search parse: %w", err)
	}

	records := make([]types.RawRecord, 0, limit)
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		href = unwrapRedirect(href)
		if !strings.Contains(href, "indiamart.com") || !hasProductPath(href) || seen[href] {
			return true
		}
		text := strings.TrimSpace(a.Text())
		if len(text) <= harvestNameFloor {
			return true
		}
		seen[href] = true
		records = append(records, types.RawRecord{
			Source: types.SourceIndiaMart,
			Fields: map[string]string{"name": text, "url": href},
		})
		return true
	})

	logging.Scrape("IndiaMART: site search yielded %d records", len(records))
	return records, nil
}

// HarvestProductLinks is the structural fallback shared by DOM sources: every
// anchor whose href looks like a product page and whose text is long enough
// to be a name becomes a minimal record.
func HarvestProductLinks(doc *goquery.Document, source string, limit int) []types.RawRecord {
	records := make([]types.RawRecord, 0, limit)
	seen := make(map[string]bool)

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		if !hasProductPath(href) || seen[href] {
			return true
		}
		text := strings.TrimSpace(a.Text())
		if len(text) <= harvestNameFloor {
			return true
		}
		seen[href] = true
		records = append(records, types.RawRecord{
			Source: source,
			Fields: map[string]string{"name": text, "url": href},
		})
		return true
	})

	logging.Scrape("Link harvest: %d records", len(records))
	return records
}

func hasProductPath(href string) bool {
	lower := strings.ToLower(href)
	for _, kw := range productPathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// unwrapRedirect strips search-engine redirect wrappers ("/url?q=<target>&…")
// down to the target URL.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "/url?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("q"); target != "" {
		return target
	}
	return href
}
