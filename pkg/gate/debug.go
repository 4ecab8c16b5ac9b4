package gate

import "net/http"

// DebugWarmFaviconHandler forces an immediate favicon cache refresh. It
// requires a bearer token issued by the wired botauth.Authenticator; if
// favicon caching or the authenticator were never configured, it 404s.
func (g *Gate) DebugWarmFaviconHandler(w http.ResponseWriter, r *http.Request) {
	if g.favicon == nil || g.botAuth == nil {
		http.NotFound(w, r)
		return
	}

	claims, err := g.botAuth.Verify(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := g.favicon.Refresh(r.Context()); err != nil {
		g.log.WithError(err).WithField("subject", claims.Subject).Warn("favicon warm failed")
		http.Error(w, "refresh failed", http.StatusBadGateway)

		return
	}

	g.log.WithField("subject", claims.Subject).Info("favicon cache warmed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("warmed"))
}
