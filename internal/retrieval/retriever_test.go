package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"partscout/internal/index"
	"partscout/internal/store"
	"partscout/internal/types"
)

// axisEngine maps known phrases onto fixed unit vectors so similarity is
// deterministic: texts sharing a keyword land on the same axis.
type axisEngine struct{}

func (axisEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "axle"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "coupler"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (e axisEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (axisEngine) Dimensions() int { return 3 }
func (axisEngine) Name() string    { return "axis-test" }

func testProducts() []types.CanonicalProduct {
	return []types.CanonicalProduct{
		{SourceID: "B01", Name: "Heavy Duty Trailer Axle", Price: "₹4,999", URL: "https://a/1", Source: types.SourceAmazon},
		{SourceID: "110001", Name: "Trailer Coupler Hitch Lock", Price: "29.99 USD", URL: "https://e/1", Source: types.SourceEbay},
		{SourceID: "jockey-1", Name: "Jockey Wheel Assembly", Price: "Ask Price", URL: "https://i/1", Source: types.SourceIndiaMart},
	}
}

func newTestStack(t *testing.T) (*Retriever, *index.Indexer) {
	t.Helper()
	catalog, err := store.Open(filepath.Join(t.TempDir(), "parts.db"), "trailer_parts")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	engine := axisEngine{}
	return New(engine, catalog), index.New(engine, catalog)
}

func TestRetrieveRanksByQuery(t *testing.T) {
	r, ix := newTestStack(t)
	ctx := context.Background()

	if _, err := ix.Upsert(ctx, testProducts()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	result, err := r.Retrieve(ctx, "trailer axle 2000kg", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("got %d matches, want 3", len(result))
	}
	if got := result[0].Entry.Metadata["name"]; got != "Heavy Duty Trailer Axle" {
		t.Errorf("nearest = %q", got)
	}
	for i := 1; i < len(result); i++ {
		if result[i].Distance < result[i-1].Distance {
			t.Errorf("distances not ascending at %d: %v", i, result)
		}
	}
}

func TestRetrieveTopKBound(t *testing.T) {
	r, ix := newTestStack(t)
	ctx := context.Background()

	if _, err := ix.Upsert(ctx, testProducts()); err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(ctx, "coupler", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("got %d matches, want 1", len(result))
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r, _ := newTestStack(t)

	result, err := r.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("empty index must not error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("got %d matches from empty index", len(result))
	}
}

func TestIndexerSkipsKeyless(t *testing.T) {
	_, ix := newTestStack(t)
	ctx := context.Background()

	products := append(testProducts(), types.CanonicalProduct{
		Name: "No identity product listing", Price: "₹1", URL: "https://x/1",
	})
	written, err := ix.Upsert(ctx, products)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if written != 3 {
		t.Errorf("written = %d, want 3 (keyless skipped)", written)
	}
}

func TestRoundTripMetadata(t *testing.T) {
	r, ix := newTestStack(t)
	ctx := context.Background()

	if _, err := ix.Upsert(ctx, testProducts()); err != nil {
		t.Fatal(err)
	}

	result, err := r.Retrieve(ctx, "axle", 1)
	if err != nil {
		t.Fatal(err)
	}
	products := result.Products()
	if len(products) != 1 {
		t.Fatalf("got %d products", len(products))
	}
	p := products[0]
	if p.Key() != fmt.Sprintf("%s_B01", types.SourceAmazon) {
		t.Errorf("key = %q", p.Key())
	}
	if p.Price != "₹4,999" {
		t.Errorf("price = %q", p.Price)
	}
}
