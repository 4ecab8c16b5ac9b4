package challenge

import (
	"crypto/sha256"
	"encoding/base64"
	"net"
	"net/http"
	"strings"

	"github.com/ethpandaops/cowcatwaf/pkg/config"
)

// UAHash returns the first 8 bytes of SHA-256(ua), base64url-encoded.
func UAHash(ua string) string {
	return shortHash(ua)
}

// IPHash returns the first 8 bytes of SHA-256(ip), base64url-encoded, or
// the empty string when ip is empty (IP binding disabled).
func IPHash(ip string) string {
	if ip == "" {
		return ""
	}

	return shortHash(ip)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))

	return base64.RawURLEncoding.EncodeToString(sum[:8])
}

// ResolveLogIP extracts the client IP for logging and rule matching: prefer
// X-Real-IP, then the first token of X-Forwarded-For, else the peer
// address from RemoteAddr.
func ResolveLogIP(r *http.Request) string {
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return v
	}

	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return strings.TrimSpace(strings.Split(v, ",")[0])
	}

	return peerAddr(r)
}

// ResolveBindIP extracts the client IP used for cookie/task binding,
// according to policy. The two resolvers are intentionally distinct: a
// client behind a proxy cannot evade binding by stripping headers that
// only the logging resolver trusts.
func ResolveBindIP(r *http.Request, policy config.IPPolicy) string {
	switch policy {
	case config.IPPolicyNone:
		return ""
	case config.IPPolicyStrict:
		return peerAddr(r)
	case config.IPPolicyEnable:
		if v := r.Header.Get("X-Forwarded-For"); v != "" {
			return strings.TrimSpace(strings.Split(v, ",")[0])
		}

		if v := r.Header.Get("X-Real-IP"); v != "" {
			return v
		}

		return peerAddr(r)
	default:
		return ""
	}
}

func peerAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
