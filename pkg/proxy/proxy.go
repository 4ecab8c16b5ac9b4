// Package proxy forwards admitted requests to the configured upstream
// origin and streams its response back unchanged.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader correlates a forwarded request with upstream logs.
const RequestIDHeader = "X-Cowcat-Request-Id"

// New builds a reverse proxy to target. Scheme, authority, and Host are
// replaced with the upstream's on every request; X-Forwarded-Host and
// X-Forwarded-Proto are set to the upstream's host and scheme only when the
// incoming request doesn't already carry them. Upstream failures are logged
// and answered with 502.
func New(target *url.URL, log logrus.FieldLogger) *httputil.ReverseProxy {
	log = log.WithField("component", "proxy")

	director := func(r *http.Request) {
		r.URL.Scheme = target.Scheme
		r.URL.Host = target.Host

		if r.Header.Get("X-Forwarded-Host") == "" {
			r.Header.Set("X-Forwarded-Host", target.Host)
		}

		if r.Header.Get("X-Forwarded-Proto") == "" {
			r.Header.Set("X-Forwarded-Proto", target.Scheme)
		}

		r.Host = target.Host
		r.Header.Set(RequestIDHeader, uuid.New().String())
	}

	return &httputil.ReverseProxy{
		Director: director,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithError(err).WithField("path", r.URL.Path).Warn("upstream request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}
