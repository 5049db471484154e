package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"partscout/internal/logging"
	"partscout/internal/types"
)

const (
	ebayProdTokenURL    = "https://api.ebay.com/identity/v1/oauth2/token"
	ebaySandboxTokenURL = "https://api.sandbox.ebay.com/identity/v1/oauth2/token"
	ebayProdBrowseURL   = "https://api.ebay.com/buy/browse/v1/item_summary/search"
	ebaySandboxBrowse   = "https://api.sandbox.ebay.com/buy/browse/v1/item_summary/search"

	ebayScope = "https://api.ebay.com/oauth/api_scope"

	// tokenExpirySkew refreshes the cached application token a minute
	// before eBay's stated expiry so in-flight requests never race it.
	tokenExpirySkew = 60 * time.Second
)

// EbayConfig holds eBay Browse API credentials and mode.
type EbayConfig struct {
	ClientID     string
	ClientSecret string
	Sandbox      bool
	Timeout      time.Duration
}

// EbayExtractor queries the eBay Browse API. Unlike the DOM sources it needs
// no rendered pages: one authenticated GET returns structured summaries.
type EbayExtractor struct {
	cfg       EbayConfig
	browseURL string
	tokens    oauth2.TokenSource
	client    *http.Client
}

// NewEbayExtractor creates an extractor with a cached client-credentials
// token source. Returns an error when credentials are missing.
func NewEbayExtractor(cfg EbayConfig) (*EbayExtractor, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("ebay credentials not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	tokenURL := ebayProdTokenURL
	browseURL := ebayProdBrowseURL
	if cfg.Sandbox {
		tokenURL = ebaySandboxTokenURL
		browseURL = ebaySandboxBrowse
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{ebayScope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	e := &EbayExtractor{
		cfg:       cfg,
		browseURL: browseURL,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
	e.tokens = oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(context.Background()), tokenExpirySkew)
	return e, nil
}

// Source returns the marketplace tag.
func (e *EbayExtractor) Source() string { return types.SourceEbay }

// SearchURL returns the Browse API search URL for a query.
func (e *EbayExtractor) SearchURL(query string) string {
	return fmt.Sprintf("%s?q=%s&sort=price", e.browseURL, url.QueryEscape(query))
}

// ebayItemSummary mirrors the Browse API fields this pipeline keeps.
type ebayItemSummary struct {
	ItemID     string `json:"itemId"`
	Title      string `json:"title"`
	ItemWebURL string `json:"itemWebUrl"`
	Condition  string `json:"condition"`
	Price      struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	Seller struct {
		Username           string `json:"username"`
		FeedbackPercentage string `json:"feedbackPercentage"`
	} `json:"seller"`
	Image struct {
		ImageURL string `json:"imageUrl"`
	} `json:"image"`
	ItemLocation struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"itemLocation"`
	ShippingOptions []struct {
		ShippingCost struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"shippingCost"`
	} `json:"shippingOptions"`
}

type ebaySearchResponse struct {
	Total         int               `json:"total"`
	ItemSummaries []ebayItemSummary `json:"itemSummaries"`
}

// Extract runs one Browse API search, price ascending, bounded by the
// configured timeout. No retry loop: a failed call surfaces in the run
// summary and the next run tries again.
func (e *EbayExtractor) Extract(ctx context.Context, query string, limit int) ([]types.RawRecord, error) {
	timer := logging.StartTimer(logging.CategoryScrape, "ebay.Extract")
	defer timer.Stop()

	tok, err := e.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("ebay token: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("sort", "price")

	req, err := http.NewRequestWithContext(ctx, "GET", e.browseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ebay request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", "EBAY_US")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ebay search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ebay search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result ebaySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ebay decode: %w", err)
	}

	records := make([]types.RawRecord, 0, len(result.ItemSummaries))
	for _, item := range result.ItemSummaries {
		if item.ItemID == "" || item.Title == "" {
			continue
		}
		records = append(records, types.RawRecord{
			Source: types.SourceEbay,
			Fields: mapEbayItem(item),
		})
	}

	logging.Scrape("eBay: %d of %d summaries extracted (total=%d)", len(records), len(result.ItemSummaries), result.Total)
	return records, nil
}

func mapEbayItem(item ebayItemSummary) map[string]string {
	fields := map[string]string{
		"item_id":   item.ItemID,
		"title":     item.Title,
		"url":       item.ItemWebURL,
		"condition": item.Condition,
		"seller":    item.Seller.Username,
		"image":     item.Image.ImageURL,
	}

	if item.Price.Value != "" {
		fields["price"] = strings.TrimSpace(item.Price.Value + " " + item.Price.Currency)
	}
	if item.Seller.FeedbackPercentage != "" {
		fields["seller_rating"] = item.Seller.FeedbackPercentage + "%"
	}

	loc := item.ItemLocation.City
	if item.ItemLocation.Country != "" {
		if loc != "" {
			loc += ", "
		}
		loc += item.ItemLocation.Country
	}
	if loc != "" {
		fields["location"] = loc
	}

	// Absent or zero shipping cost means free shipping in Browse results.
	if len(item.ShippingOptions) > 0 {
		cost := item.ShippingOptions[0].ShippingCost
		if cost.Value != "" && cost.Value != "0.0" && cost.Value != "0.00" {
			fields["shipping"] = strings.TrimSpace(cost.Value + " " + cost.Currency)
		}
	}
	return fields
}
