package challenge

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/cowcatwaf/pkg/config"
)

func TestUAHashIsStableAndShort(t *testing.T) {
	a := UAHash("Mozilla/5.0")
	b := UAHash("Mozilla/5.0")
	require.Equal(t, a, b)
	require.Len(t, a, 11) // base64url of 8 bytes, no padding
}

func TestIPHashEmptyWhenIPEmpty(t *testing.T) {
	require.Equal(t, "", IPHash(""))
	require.NotEqual(t, "", IPHash("1.2.3.4"))
}

func TestResolveLogIPPrefersXRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Real-IP", "203.0.113.5")
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")

	require.Equal(t, "203.0.113.5", ResolveLogIP(r))
}

func TestResolveLogIPFallsBackToXFFThenPeer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")
	require.Equal(t, "198.51.100.9", ResolveLogIP(r))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "10.0.0.1", ResolveLogIP(r2))
}

func TestResolveBindIPNoneIsAlwaysEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Real-IP", "203.0.113.5")
	require.Equal(t, "", ResolveBindIP(r, config.IPPolicyNone))
}

func TestResolveBindIPStrictIgnoresHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Real-IP", "203.0.113.5")
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	require.Equal(t, "10.0.0.1", ResolveBindIP(r, config.IPPolicyStrict))
}

func TestResolveBindIPEnablePrefersXFFThenXRealIPThenPeer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")
	r.Header.Set("X-Real-IP", "203.0.113.5")
	require.Equal(t, "198.51.100.9", ResolveBindIP(r, config.IPPolicyEnable))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	r2.Header.Set("X-Real-IP", "203.0.113.5")
	require.Equal(t, "203.0.113.5", ResolveBindIP(r2, config.IPPolicyEnable))

	r3 := httptest.NewRequest(http.MethodGet, "/", nil)
	r3.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "10.0.0.1", ResolveBindIP(r3, config.IPPolicyEnable))
}
