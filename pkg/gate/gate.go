// Package gate implements the per-request admission state machine: cookie
// verification, rule evaluation, and challenge issuance in front of the
// proxy forwarder.
package gate

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/cowcatwaf/internal/botcheck"
	"github.com/ethpandaops/cowcatwaf/internal/favicon"
	"github.com/ethpandaops/cowcatwaf/internal/metrics"
	"github.com/ethpandaops/cowcatwaf/pkg/botauth"
	"github.com/ethpandaops/cowcatwaf/pkg/challenge"
	"github.com/ethpandaops/cowcatwaf/pkg/config"
	"github.com/ethpandaops/cowcatwaf/pkg/rules"
	"github.com/ethpandaops/cowcatwaf/pkg/token"
)

// Gate decides, for every inbound request, whether to forward, block,
// re-challenge, or bypass.
type Gate struct {
	handlers *challenge.Handlers
	engine   *rules.Engine
	secret   []byte
	powCfg   config.PowConfig
	log      logrus.FieldLogger

	favicon    *favicon.Cache
	botChecker *botcheck.Checker
	botAuth    *botauth.Authenticator
}

// New builds a Gate. favicon, bot checking, and the debug authenticator are
// all optional and wired in afterward with the Set* methods.
func New(handlers *challenge.Handlers, engine *rules.Engine, secret []byte, powCfg config.PowConfig, log logrus.FieldLogger) *Gate {
	return &Gate{
		handlers: handlers,
		engine:   engine,
		secret:   secret,
		powCfg:   powCfg,
		log:      log.WithField("component", "gate"),
	}
}

// SetFavicon wires the favicon cache into the /favicon.ico bypass step.
func (g *Gate) SetFavicon(c *favicon.Cache) { g.favicon = c }

// SetBotChecker wires the bot-verification subsystem. The gate does not
// consult it in the decision chain, and no rule predicate or debug hook
// calls it; BotChecker hands it back to callers.
func (g *Gate) SetBotChecker(c *botcheck.Checker) { g.botChecker = c }

// BotChecker returns the wired bot checker, or nil if none was set.
func (g *Gate) BotChecker() *botcheck.Checker { return g.botChecker }

// SetBotAuth wires the bearer-token authenticator guarding debug hooks.
func (g *Gate) SetBotAuth(a *botauth.Authenticator) { g.botAuth = a }

// Wrap returns middleware implementing the full decision chain. next is
// invoked whenever the gate forwards a request; otherwise the gate writes
// the response itself (a challenge page, an empty 403, or the cached
// favicon).
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forward := func() {
			metrics.GateDecisionsTotal.WithLabelValues(metrics.DecisionForward).Inc()
			next.ServeHTTP(w, r)
		}

		if rules.Clamp(g.powCfg.Difficulty) == 0 {
			forward()
			return
		}

		if strings.HasPrefix(r.URL.Path, challenge.InternalPrefix) {
			forward()
			return
		}

		if r.URL.Path == "/metrics" {
			forward()
			return
		}

		if r.URL.Path == "/favicon.ico" {
			g.serveFavicon(w, r, forward)
			return
		}

		if isServiceWorkerLoad(r) {
			forward()
			return
		}

		if g.powCfg.TestMode {
			g.challengeAt(w, r, g.powCfg.Difficulty)
			return
		}

		if g.cookieAdmits(r) {
			forward()
			return
		}

		decision := g.engine.Evaluate(rules.Request{
			Path:    r.URL.Path,
			Headers: r.Header,
			IP:      challenge.ResolveLogIP(r),
		})

		switch decision.Action {
		case rules.ActionAllow:
			forward()
		case rules.ActionBlock:
			metrics.GateDecisionsTotal.WithLabelValues(metrics.DecisionBlock).Inc()
			w.WriteHeader(http.StatusForbidden)
		case rules.ActionChallenge:
			effective := rules.Clamp(g.powCfg.Difficulty + decision.DifficultyDelta)
			if effective == 0 {
				forward()
				return
			}

			g.challengeAt(w, r, effective)
		case rules.ActionNone:
			g.challengeAt(w, r, g.powCfg.Difficulty)
		}
	})
}

func (g *Gate) serveFavicon(w http.ResponseWriter, r *http.Request, forward func()) {
	if g.favicon == nil {
		forward()
		return
	}

	status, header, body, ok := g.favicon.Get(r.Context())
	if !ok {
		forward()
		return
	}

	metrics.GateDecisionsTotal.WithLabelValues(metrics.DecisionForward).Inc()

	for k, vs := range header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (g *Gate) cookieAdmits(r *http.Request) bool {
	cookie, err := r.Cookie(challenge.CookieName)
	if err != nil {
		return false
	}

	payload, err := token.Verify(g.secret, cookie.Value, time.Now())
	if err != nil {
		return false
	}

	if payload.UA != challenge.UAHash(r.UserAgent()) {
		return false
	}

	if g.powCfg.IPPolicy != config.IPPolicyNone {
		bindIP := challenge.ResolveBindIP(r, g.powCfg.IPPolicy)
		if payload.IP != challenge.IPHash(bindIP) {
			return false
		}
	}

	return true
}

func (g *Gate) challengeAt(w http.ResponseWriter, r *http.Request, difficulty int) {
	metrics.GateDecisionsTotal.WithLabelValues(metrics.DecisionChallenge).Inc()

	redirect := r.URL.Path
	if r.URL.RawQuery != "" {
		redirect += "?" + r.URL.RawQuery
	}

	g.handlers.RenderChallengePage(w, r, difficulty, redirect)
}

func isServiceWorkerLoad(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	looksLikeWorker := strings.EqualFold(r.Header.Get("Sec-Fetch-Dest"), "serviceworker") ||
		strings.EqualFold(r.Header.Get("Service-Worker"), "script")
	if !looksLikeWorker {
		return false
	}

	return strings.HasSuffix(r.URL.Path, ".js") || strings.HasSuffix(r.URL.Path, ".mjs")
}
