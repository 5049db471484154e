package fetch

import (
	"context"
	"testing"
	"time"
)

type fakeFetcher struct {
	calls []string
}

func (f *fakeFetcher) FetchRendered(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	return "<html></html>", nil
}

func TestPoliteFetcherDelegates(t *testing.T) {
	fake := &fakeFetcher{}
	p := NewPoliteFetcher(fake, 0) // pacing disabled

	for _, u := range []string{"https://a.com/1", "https://a.com/2", "https://b.com/1"} {
		if _, err := p.FetchRendered(context.Background(), u); err != nil {
			t.Fatalf("FetchRendered(%s): %v", u, err)
		}
	}
	if len(fake.calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(fake.calls))
	}
}

func TestPoliteFetcherPacesSameHost(t *testing.T) {
	fake := &fakeFetcher{}
	p := NewPoliteFetcher(fake, 20) // 50ms between same-host fetches

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.FetchRendered(context.Background(), "https://a.com/x"); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three same-host fetches completed in %v, expected pacing", elapsed)
	}
}

func TestPoliteFetcherHostsIndependent(t *testing.T) {
	fake := &fakeFetcher{}
	p := NewPoliteFetcher(fake, 1) // 1 rps would stall same-host fetches

	start := time.Now()
	for _, u := range []string{"https://a.com/x", "https://b.com/x", "https://c.com/x"} {
		if _, err := p.FetchRendered(context.Background(), u); err != nil {
			t.Fatalf("FetchRendered(%s): %v", u, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("distinct hosts waited on each other: %v", elapsed)
	}
}

func TestPoliteFetcherCancelled(t *testing.T) {
	fake := &fakeFetcher{}
	p := NewPoliteFetcher(fake, 0.1)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := p.FetchRendered(ctx, "https://a.com/x"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	cancel()
	if _, err := p.FetchRendered(ctx, "https://a.com/x"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestLooksBlocked(t *testing.T) {
	if !LooksBlocked("<html>Enter the characters you see below</html>") {
		t.Error("captcha interstitial not detected")
	}
	if LooksBlocked("<html><div data-asin='B01'>Trailer Axle</div></html>") {
		t.Error("normal listing flagged as blocked")
	}
}
