package favicon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestGetFetchesAndCaches(t *testing.T) {
	hits := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/x-icon")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("icon-bytes"))
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	c := New(target, rate.Inf)

	status, header, body, ok := c.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "image/x-icon", header.Get("Content-Type"))
	require.Equal(t, []byte("icon-bytes"), body)

	_, _, _, ok = c.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, hits, "second call within TTL must be served from cache")
}

func TestGetFallsBackToStaleCacheWhenRateLimited(t *testing.T) {
	hits := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("icon"))
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	c := New(target, 0)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	c.ttl = time.Nanosecond

	status, _, _, ok := c.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)

	status, _, body, ok := c.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []byte("icon"), body)
	require.Equal(t, 1, hits)
}

func TestRefreshBypassesRateLimiter(t *testing.T) {
	hits := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("icon"))
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	c := New(target, 0)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, 1, hits)

	status, _, body, ok := c.Get(context.Background())
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []byte("icon"), body)
	require.Equal(t, 1, hits, "Get must be served from the entry Refresh installed")
}

func TestRefreshReturnsErrorOnUpstreamFailure(t *testing.T) {
	target, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)

	c := New(target, rate.Inf)

	require.Error(t, c.Refresh(context.Background()))
}

func TestGetReturnsNotOKWhenNoCacheAndUpstreamDown(t *testing.T) {
	target, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)

	c := New(target, rate.Inf)

	_, _, _, ok := c.Get(context.Background())
	require.False(t, ok)
}
