package scrape

import (
	"context"
	"testing"

	"partscout/internal/types"
)

type stubFetcher struct {
	pages map[string]string
	last  string
}

func (s *stubFetcher) FetchRendered(ctx context.Context, url string) (string, error) {
	s.last = url
	if page, ok := s.pages[url]; ok {
		return page, nil
	}
	return "<html></html>", nil
}

const amazonFixture = `<html><body>
<div data-component-type="s-search-result" data-asin="B0AXLE1234">
	<h2><a href="/dp/B0AXLE1234"><span>Heavy Duty Trailer Axle 2000kg Capacity</span></a></h2>
	<span class="a-price"><span class="a-offscreen">₹4,999</span></span>
	<span class="a-icon-alt">4.3 out of 5 stars</span>
	<span class="a-size-base s-underline-text">1,204</span>
	<img class="s-image" src="https://m.media-amazon.com/images/axle.jpg"/>
	<i class="a-icon-prime"></i>
</div>
<div data-component-type="s-search-result" data-asin="B0HUB56789">
	<h2><a href="/dp/B0HUB56789"><span>Trailer Wheel Hub Assembly Kit</span></a></h2>
	<span class="a-price"><span class="a-price-whole">1,299.</span><span class="a-price-fraction">00</span></span>
</div>
<div data-component-type="s-search-result" data-asin="B0">
	<h2><a href="/dp/B0"><span>Stub container with short asin</span></a></h2>
</div>
</body></html>`

func TestAmazonExtract(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	e := NewAmazonExtractor(fetcher, "https://www.amazon.in")
	fetcher.pages[e.SearchURL("trailer axle")] = amazonFixture

	records, err := e.Extract(context.Background(), "trailer axle", 10)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (short asin dropped)", len(records))
	}

	first := records[0]
	if first.Source != types.SourceAmazon {
		t.Errorf("source = %q", first.Source)
	}
	if first.Get("asin") != "B0AXLE1234" {
		t.Errorf("asin = %q", first.Get("asin"))
	}
	if first.Get("price") != "₹4,999" {
		t.Errorf("price = %q", first.Get("price"))
	}
	if first.Get("rating") != "4.3" {
		t.Errorf("rating = %q", first.Get("rating"))
	}
	if first.Get("review_count") != "1,204" {
		t.Errorf("review_count = %q", first.Get("review_count"))
	}
	if first.Get("prime") != "true" {
		t.Errorf("prime = %q", first.Get("prime"))
	}

	// Second item has no offscreen price; whole+fraction reconstruction.
	if got := records[1].Get("price"); got != "1,299.00" {
		t.Errorf("reconstructed price = %q", got)
	}
}

func TestAmazonExtractLimit(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	e := NewAmazonExtractor(fetcher, "https://www.amazon.in")
	fetcher.pages[e.SearchURL("axle")] = amazonFixture

	records, err := e.Extract(context.Background(), "axle", 1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestAmazonExtractNoContainers(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	e := NewAmazonExtractor(fetcher, "https://www.amazon.in")
	fetcher.pages[e.SearchURL("axle")] = "<html><body><p>no results</p></body></html>"

	records, err := e.Extract(context.Background(), "axle", 10)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}
