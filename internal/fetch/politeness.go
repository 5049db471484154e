package fetch

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"partscout/internal/logging"
)

// PoliteFetcher wraps a PageFetcher with per-host courtesy pacing so bursts
// of fetches against one marketplace are spread out. Hosts get independent
// limiters; different sources never wait on each other.
type PoliteFetcher struct {
	inner    PageFetcher
	perHost  rate.Limit
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPoliteFetcher wraps inner with a requests-per-second cap per host.
// A non-positive rps disables pacing.
func NewPoliteFetcher(inner PageFetcher, rps float64) *PoliteFetcher {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &PoliteFetcher{
		inner:    inner,
		perHost:  limit,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (p *PoliteFetcher) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[host]
	if !ok {
		// Burst of 1: the first fetch is immediate, the rest pace out.
		l = rate.NewLimiter(p.perHost, 1)
		p.limiters[host] = l
	}
	return l
}

// FetchRendered waits for the host's limiter before delegating.
func (p *PoliteFetcher) FetchRendered(ctx context.Context, rawURL string) (string, error) {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	if err := p.limiter(host).Wait(ctx); err != nil {
		return "", err
	}

	logging.FetchDebug("Politeness gate passed for host %s", host)
	return p.inner.FetchRendered(ctx, rawURL)
}
