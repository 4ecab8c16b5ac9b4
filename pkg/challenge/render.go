package challenge

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethpandaops/cowcatwaf/internal/metrics"
)

var pageTemplate = string(mustReadAsset("page.html"))

func renderPage(taskWire []byte, redirect string) []byte {
	page := pageTemplate
	page = strings.ReplaceAll(page, "{{ TaskData }}", base64.StdEncoding.EncodeToString(taskWire))
	page = strings.ReplaceAll(page, "{{ RedirectURL }}", html.EscapeString(redirect))
	page = strings.ReplaceAll(page, "{{ CowcatImage1 }}", InternalPrefix+"/assets/cowcat1.svg")
	page = strings.ReplaceAll(page, "{{ CowcatImage2 }}", InternalPrefix+"/assets/cowcat2.svg")

	return []byte(page)
}

// RenderChallengePage issues a fresh task at difficulty and writes the
// challenge HTML page as a 403 response carrying the masked task frame.
func (h *Handlers) RenderChallengePage(w http.ResponseWriter, r *http.Request, difficulty int, redirect string) {
	bindIP := ResolveBindIP(r, h.powCfg.IPPolicy)

	_, wire, err := IssueTask(h.store, IssueParams{
		Difficulty: difficulty,
		Host:       r.Host,
		UAHash:     UAHash(r.UserAgent()),
		IPHash:     IPHash(bindIP),
		Workers:    h.powCfg.Workers,
		WorkerType: h.powCfg.WorkerType,
	})
	if err != nil {
		h.log.WithError(err).Error("issue challenge task")
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	metrics.TasksIssuedTotal.Inc()
	metrics.TaskStoreSize.Set(float64(h.store.Size()))

	writeChallengeResponse(w, r, renderPage(wire, redirect))
}

// PageHandler serves GET /__cowcatwaf/ — the challenge page fetched
// directly rather than triggered by the gate intercepting another path.
func (h *Handlers) PageHandler(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = "/"
	}

	h.RenderChallengePage(w, r, h.powCfg.Difficulty, redirect)
}

func writeChallengeResponse(w http.ResponseWriter, r *http.Request, body []byte) {
	header := w.Header()
	header.Set("Cache-Control", "private, max-age=0, no-store, no-cache, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")
	header.Set("Content-Type", "text/html; charset=utf-8")

	if acceptsGzip(r) {
		var buf bytes.Buffer

		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write(body)
		_ = gz.Close()

		body = buf.Bytes()
		header.Set("Content-Encoding", "gzip")
		header.Set("Vary", "Accept-Encoding")
	}

	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write(body)
}

// acceptsGzip reports whether the request's Accept-Encoding header admits
// a gzip-encoded response: an explicit "gzip" entry with positive q, or a
// "*" entry with positive q and no explicit gzip entry overriding it.
func acceptsGzip(r *http.Request) bool {
	header := r.Header.Get("Accept-Encoding")
	if header == "" {
		return false
	}

	var sawGzip, gzipOK, sawStar, starOK bool

	for _, part := range strings.Split(header, ",") {
		name, q := parseEncodingEntry(part)

		switch name {
		case "gzip":
			sawGzip = true
			gzipOK = q > 0
		case "*":
			sawStar = true
			starOK = q > 0
		}
	}

	if sawGzip {
		return gzipOK
	}

	return sawStar && starOK
}

func parseEncodingEntry(part string) (name string, q float64) {
	fields := strings.Split(part, ";")
	name = strings.ToLower(strings.TrimSpace(fields[0]))
	q = 1.0

	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		if v, ok := strings.CutPrefix(f, "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
	}

	return name, q
}
