package normalize

import (
	"testing"

	"partscout/internal/types"
)

func TestResolveURL(t *testing.T) {
	base := "https://www.example.com"

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"absolute unchanged", "https://other.com/p/1", "https://other.com/p/1"},
		{"scheme relative", "//cdn.example.com/img.jpg", "https://cdn.example.com/img.jpg"},
		{"root relative", "/proddetail/axle-123.html", "https://www.example.com/proddetail/axle-123.html"},
		{"bare relative", "proddetail/axle-123.html", "https://www.example.com/proddetail/axle-123.html"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(base, tt.ref); got != tt.want {
				t.Errorf("ResolveURL(%q, %q) = %q, want %q", base, tt.ref, got, tt.want)
			}
		})
	}

	// Trailing slash on base must not double up.
	if got := ResolveURL("https://www.example.com/", "/p"); got != "https://www.example.com/p" {
		t.Errorf("trailing slash base: got %q", got)
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<b>Trailer Axle</b> 2000kg", "Trailer Axle 2000kg"},
		{"**Best Product**", "Best Product"},
		{"plain text", "plain text"},
		{"<span>₹1,299</span>", "₹1,299"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripMarkup(tt.in); got != tt.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[Buy here](https://x.com/p/1)", "https://x.com/p/1"},
		{"https://x.com/p/1).", "https://x.com/p/1"},
		{"<https://x.com/p/1>", "https://x.com/p/1"},
		{"https://x.com/p/1", "https://x.com/p/1"},
	}

	for _, tt := range tests {
		if got := CleanURL(tt.in); got != tt.want {
			t.Errorf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAmazon(t *testing.T) {
	n := New("https://www.amazon.in", "https://www.indiamart.com")

	raw := types.RawRecord{
		Source: types.SourceAmazon,
		Fields: map[string]string{
			"asin":   "B0ABCD1234",
			"title":  "Heavy Duty Trailer Axle 2000kg",
			"url":    "/dp/B0ABCD1234",
			"price":  "₹4,999",
			"rating": "4.3",
		},
	}

	p, ok := n.Normalize(raw)
	if !ok {
		t.Fatal("expected record to survive normalization")
	}
	if p.Key() != "amazon.in_B0ABCD1234" {
		t.Errorf("key = %q", p.Key())
	}
	if p.URL != "https://www.amazon.in/dp/B0ABCD1234" {
		t.Errorf("url = %q", p.URL)
	}
	if p.Price != "₹4,999" {
		t.Errorf("price = %q", p.Price)
	}
}

func TestNormalizeDiscards(t *testing.T) {
	n := New("https://www.amazon.in", "https://www.indiamart.com")

	tests := []struct {
		name string
		raw  types.RawRecord
	}{
		{
			"short asin",
			types.RawRecord{Source: types.SourceAmazon, Fields: map[string]string{
				"asin": "B0", "title": "Heavy Duty Trailer Axle", "url": "/dp/B0",
			}},
		},
		{
			"short name",
			types.RawRecord{Source: types.SourceAmazon, Fields: map[string]string{
				"asin": "B0ABCD1234", "title": "Axle", "url": "/dp/B0ABCD1234",
			}},
		},
		{
			"missing ebay id",
			types.RawRecord{Source: types.SourceEbay, Fields: map[string]string{
				"title": "Trailer Leaf Spring Assembly", "url": "https://ebay.com/itm/1",
			}},
		},
		{
			"unknown source",
			types.RawRecord{Source: "etsy.com", Fields: map[string]string{
				"title": "Handmade Trailer Charm",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := n.Normalize(tt.raw); ok {
				t.Error("expected record to be discarded")
			}
		})
	}
}

func TestNormalizeNameFloorCountsRunes(t *testing.T) {
	n := New("https://www.amazon.in", "https://www.indiamart.com")

	// 6 characters but 18 bytes: the floor is per character, so a short
	// Devanagari fragment must still be discarded.
	short := types.RawRecord{Source: types.SourceAmazon, Fields: map[string]string{
		"asin": "B0ABCD1234", "title": "ट्रेलर", "url": "/dp/B0ABCD1234",
	}}
	if _, ok := n.Normalize(short); ok {
		t.Error("multibyte name at 6 characters should be discarded")
	}

	long := types.RawRecord{Source: types.SourceAmazon, Fields: map[string]string{
		"asin": "B0ABCD1234", "title": "ट्रेलर एक्सल असेंबली किट", "url": "/dp/B0ABCD1234",
	}}
	if _, ok := n.Normalize(long); !ok {
		t.Error("informative multibyte name should survive")
	}
}

func TestNormalizeEbayDefaults(t *testing.T) {
	n := New("https://www.amazon.in", "https://www.indiamart.com")

	raw := types.RawRecord{
		Source: types.SourceEbay,
		Fields: map[string]string{
			"item_id": "v1|123456|0",
			"title":   "Trailer Coupler Hitch Lock 2 inch",
			"url":     "https://www.ebay.com/itm/123456",
			"price":   "29.99 USD",
		},
	}

	p, ok := n.Normalize(raw)
	if !ok {
		t.Fatal("expected record to survive normalization")
	}
	if p.ShippingCost != "Free" {
		t.Errorf("shipping default = %q, want Free", p.ShippingCost)
	}
}

func TestNormalizeIndiaMartIdentity(t *testing.T) {
	n := New("https://www.amazon.in", "https://www.indiamart.com")

	raw := types.RawRecord{
		Source: types.SourceIndiaMart,
		Fields: map[string]string{
			"name": "Galvanized Trailer Axle 3 Ton",
			"url":  "/proddetail/galvanized-axle-22334455.html?pos=2",
		},
	}

	p, ok := n.Normalize(raw)
	if !ok {
		t.Fatal("expected record to survive normalization")
	}
	if p.SourceID != "galvanized-axle-22334455.html" {
		t.Errorf("source id = %q", p.SourceID)
	}
	if p.Price != "Ask Price" {
		t.Errorf("price default = %q", p.Price)
	}
	if p.URL != "https://www.indiamart.com/proddetail/galvanized-axle-22334455.html?pos=2" {
		t.Errorf("url = %q", p.URL)
	}
}

func TestNormalizeAllIsolation(t *testing.T) {
	n := New("https://www.amazon.in", "https://www.indiamart.com")

	raws := []types.RawRecord{
		{Source: types.SourceAmazon, Fields: map[string]string{
			"asin": "B0ABCD1234", "title": "Heavy Duty Trailer Axle 2000kg", "url": "/dp/B0ABCD1234",
		}},
		{Source: "bogus"},
		{Source: types.SourceAmazon, Fields: map[string]string{
			"asin": "B0EFGH5678", "title": "Trailer Wheel Hub Assembly Kit", "url": "/dp/B0EFGH5678",
		}},
	}

	got := n.NormalizeAll(raws)
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	if got[0].SourceID != "B0ABCD1234" || got[1].SourceID != "B0EFGH5678" {
		t.Errorf("order not preserved: %v", got)
	}
}
