package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "parts.db"), "trailer_parts")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.25, 0}
	got := DecodeVector(EncodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("round trip length %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: %v != %v", i, got[i], vec[i])
		}
	}
	if EncodeVector(nil) != nil {
		t.Error("EncodeVector(nil) should be nil")
	}
	if DecodeVector(nil) != nil {
		t.Error("DecodeVector(nil) should be nil")
	}
}

func TestUpsertIdempotent(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	rec := Record{
		ID:        "amazon.in_B0AXLE1234",
		Document:  "Name: Heavy Duty Trailer Axle Price: ₹4,999",
		Embedding: []float32{1, 0, 0},
		Metadata:  map[string]string{"name": "Heavy Duty Trailer Axle", "price": "₹4,999"},
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Upsert(ctx, []Record{rec}); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	n, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d after re-upserting same id, want 1", n)
	}
}

func TestUpsertSupersedes(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	old := Record{ID: "x", Document: "old", Embedding: []float32{1, 0}, Metadata: map[string]string{"price": "₹100"}}
	neu := Record{ID: "x", Document: "new", Embedding: []float32{1, 0}, Metadata: map[string]string{"price": "₹200"}}

	if _, err := c.Upsert(ctx, []Record{old}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Upsert(ctx, []Record{neu}); err != nil {
		t.Fatal(err)
	}

	result, err := c.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("got %d matches, want 1", len(result))
	}
	if result[0].Entry.Document != "new" {
		t.Errorf("document = %q, want the superseding row", result[0].Entry.Document)
	}
	if result[0].Entry.Metadata["price"] != "₹200" {
		t.Errorf("metadata not superseded: %v", result[0].Entry.Metadata)
	}
}

func TestSearchOrderingAndCount(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	records := []Record{
		{ID: "far", Document: "far", Embedding: []float32{0, 1, 0}, Metadata: map[string]string{"name": "far"}},
		{ID: "near", Document: "near", Embedding: []float32{1, 0.05, 0}, Metadata: map[string]string{"name": "near"}},
		{ID: "mid", Document: "mid", Embedding: []float32{0.7, 0.7, 0}, Metadata: map[string]string{"name": "mid"}},
	}
	if _, err := c.Upsert(ctx, records); err != nil {
		t.Fatal(err)
	}

	result, err := c.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d matches, want topK=2", len(result))
	}
	if result[0].Entry.ID != "near" || result[1].Entry.ID != "mid" {
		t.Errorf("order = %s, %s; want near, mid", result[0].Entry.ID, result[1].Entry.ID)
	}
	if result[0].Distance > result[1].Distance {
		t.Errorf("distances not ascending: %v then %v", result[0].Distance, result[1].Distance)
	}
}

func TestSearchScopedToCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parts.db")
	ctx := context.Background()

	parts, err := Open(path, "trailer_parts")
	if err != nil {
		t.Fatalf("Open parts: %v", err)
	}
	t.Cleanup(func() { parts.Close() })

	if _, err := parts.Upsert(ctx, []Record{
		{ID: "p1", Document: "axle", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"name": "p1"}},
		{ID: "p2", Document: "hub", Embedding: []float32{0.9, 0.1, 0}, Metadata: map[string]string{"name": "p2"}},
		{ID: "p3", Document: "hitch", Embedding: []float32{0.8, 0.2, 0}, Metadata: map[string]string{"name": "p3"}},
	}); err != nil {
		t.Fatal(err)
	}

	// A second collection in the same file, deliberately closer to the
	// query than anything in the first.
	tools, err := Open(path, "workshop_tools")
	if err != nil {
		t.Fatalf("Open tools: %v", err)
	}
	t.Cleanup(func() { tools.Close() })

	if _, err := tools.Upsert(ctx, []Record{
		{ID: "t1", Document: "wrench", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"name": "t1"}},
		{ID: "t2", Document: "jack", Embedding: []float32{1, 0.01, 0}, Metadata: map[string]string{"name": "t2"}},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := parts.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("got %d matches, want all 3 of the collection", len(result))
	}
	for _, m := range result {
		if !strings.HasPrefix(m.Entry.ID, "p") {
			t.Errorf("match %q leaked from another collection", m.Entry.ID)
		}
	}
}

func TestSearchEmptyCatalog(t *testing.T) {
	c := openTestCatalog(t)

	result, err := c.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("got %d matches from empty catalog", len(result))
	}
}

func TestUpsertSkipsEmptyID(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	n, err := c.Upsert(ctx, []Record{
		{ID: "", Document: "orphan", Embedding: []float32{1}},
		{ID: "kept", Document: "kept", Embedding: []float32{1}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}
}

func TestList(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if _, err := c.Upsert(ctx, []Record{
		{ID: "a", Document: "doc a", Embedding: []float32{1, 0}, Metadata: map[string]string{"name": "a"}},
		{ID: "b", Document: "doc b", Embedding: []float32{0, 1}, Metadata: map[string]string{"name": "b"}},
	}); err != nil {
		t.Fatal(err)
	}

	entries, err := c.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Metadata == nil {
		t.Error("metadata not decoded")
	}
}
