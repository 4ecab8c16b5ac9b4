// Package favicon caches the upstream's /favicon.ico response so the gate
// can serve repeated favicon requests without proxying each one.
package favicon

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTTL is how long a cached favicon response is served before the
// next request triggers a refetch.
const DefaultTTL = 1 * time.Hour

// entry is the single cached favicon response.
type entry struct {
	status   int
	header   http.Header
	body     []byte
	cachedAt time.Time
}

func (e *entry) valid(ttl time.Duration, now time.Time) bool {
	return e != nil && now.Sub(e.cachedAt) < ttl
}

// Cache is a single-slot, concurrency-safe favicon cache with a rate
// limiter guarding upstream refetches.
type Cache struct {
	target *url.URL
	client *http.Client
	ttl    time.Duration

	limiter *rate.Limiter

	mu    sync.RWMutex
	cache *entry
}

// New builds a Cache that fetches /favicon.ico from target. refetchRate
// bounds how often an expired cache entry triggers a new upstream request.
func New(target *url.URL, refetchRate rate.Limit) *Cache {
	return &Cache{
		target:  target,
		client:  &http.Client{Timeout: 10 * time.Second},
		ttl:     DefaultTTL,
		limiter: rate.NewLimiter(refetchRate, 1),
	}
}

// Get returns the cached favicon response, refreshing it from upstream if
// expired. When a refetch is rate-limited and no cached entry exists, it
// returns ok=false and the caller should fall back to plain proxying.
func (c *Cache) Get(ctx context.Context) (status int, header http.Header, body []byte, ok bool) {
	now := time.Now()

	c.mu.RLock()
	cached := c.cache
	c.mu.RUnlock()

	if cached.valid(c.ttl, now) {
		return cached.status, cached.header.Clone(), append([]byte(nil), cached.body...), true
	}

	if !c.limiter.Allow() {
		if cached != nil {
			return cached.status, cached.header.Clone(), append([]byte(nil), cached.body...), true
		}

		return 0, nil, nil, false
	}

	fresh, err := c.fetch(ctx)
	if err != nil {
		if cached != nil {
			return cached.status, cached.header.Clone(), append([]byte(nil), cached.body...), true
		}

		return 0, nil, nil, false
	}

	c.mu.Lock()
	c.cache = fresh
	c.mu.Unlock()

	return fresh.status, fresh.header.Clone(), append([]byte(nil), fresh.body...), true
}

// Refresh forces an upstream fetch, bypassing the refetch rate limiter, and
// installs the result as the current cache entry. Intended for an
// operator-triggered cache warm, not the request path.
func (c *Cache) Refresh(ctx context.Context) error {
	fresh, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cache = fresh
	c.mu.Unlock()

	return nil
}

func (c *Cache) fetch(ctx context.Context) (*entry, error) {
	target := *c.target
	target.Path = "/favicon.ico"
	target.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	return &entry{
		status:   resp.StatusCode,
		header:   resp.Header.Clone(),
		body:     body,
		cachedAt: time.Now(),
	}, nil
}
