package challenge

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/cowcatwaf/internal/metrics"
	"github.com/ethpandaops/cowcatwaf/pkg/config"
	"github.com/ethpandaops/cowcatwaf/pkg/frame"
	"github.com/ethpandaops/cowcatwaf/pkg/pow"
	"github.com/ethpandaops/cowcatwaf/pkg/taskstore"
	"github.com/ethpandaops/cowcatwaf/pkg/token"
)

// InternalPrefix is the route prefix under which the protocol endpoints,
// health probe, and static assets are served.
const InternalPrefix = "/__cowcatwaf"

// CookieName is the name of the admission cookie set on verify success.
const CookieName = "cowcat.waf.token"

const maxBodyBytes = 16 << 10

var (
	errUAMismatch  = errors.New("user agent mismatch")
	errIPMismatch  = errors.New("ip address mismatch")
	errInvalidProof = errors.New("invalid proof of work")
)

// Handlers serves the task/verify protocol endpoints.
type Handlers struct {
	store    *taskstore.Store
	secret   []byte
	powCfg   config.PowConfig
	server   config.ServerConfig
	log      logrus.FieldLogger
}

// NewHandlers builds the task/verify handlers.
func NewHandlers(store *taskstore.Store, secret []byte, powCfg config.PowConfig, server config.ServerConfig, log logrus.FieldLogger) *Handlers {
	return &Handlers{store: store, secret: secret, powCfg: powCfg, server: server, log: log.WithField("component", "challenge")}
}

// TaskHandler issues a fresh task. An empty body is accepted; a non-empty
// body must parse as a type-1 TaskReq frame.
func (h *Handlers) TaskHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if len(body) > 0 {
		f, err := frame.Decode(body)
		if err != nil || f.Type != frame.TypeTaskReq {
			h.writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		if _, err := frame.DecodeTaskRequest(f); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	}

	bindIP := ResolveBindIP(r, h.powCfg.IPPolicy)

	taskID, wire, err := IssueTask(h.store, IssueParams{
		Difficulty: h.powCfg.Difficulty,
		Host:       r.Host,
		UAHash:     UAHash(r.UserAgent()),
		IPHash:     IPHash(bindIP),
		Workers:    h.powCfg.Workers,
		WorkerType: h.powCfg.WorkerType,
	})
	if err != nil {
		h.log.WithError(err).Error("issue task")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	metrics.TasksIssuedTotal.Inc()
	metrics.TaskStoreSize.Set(float64(h.store.Size()))

	h.log.WithField("task_id", taskID).Debug("issued task")

	writeFrameBody(w, http.StatusOK, wire)
}

// VerifyHandler consumes a solved task and, on success, sets the admission
// cookie and returns the redirect target.
func (h *Handlers) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	f, err := frame.Decode(frame.Obfuscate(body))
	if err != nil || f.Type != frame.TypeVerifyReq {
		h.writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req, err := frame.DecodeVerifyRequest(f)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	uaHash := UAHash(r.UserAgent())
	bindIP := ResolveBindIP(r, h.powCfg.IPPolicy)
	ipHash := IPHash(bindIP)

	task, err := h.store.ConsumeIf(req.TaskID, time.Now(), func(t *taskstore.Task) error {
		if t.UAHash != uaHash {
			return errUAMismatch
		}

		if h.powCfg.IPPolicy != config.IPPolicyNone && t.IPHash != ipHash {
			return errIPMismatch
		}

		if !pow.Verify(pow.Params{Seed: t.Seed, Exp: t.Exp, Bits: t.Bits, Scope: t.Scope, UAHash: t.UAHash}, req.Nonce) {
			return errInvalidProof
		}

		return nil
	})

	metrics.TaskStoreSize.Set(float64(h.store.Size()))

	if err != nil {
		metrics.TasksVerifiedTotal.WithLabelValues(metrics.ResultRejected).Inc()
		h.writeError(w, http.StatusBadRequest, verifyErrorMessage(err))

		return
	}

	metrics.TasksVerifiedTotal.WithLabelValues(metrics.ResultAccepted).Inc()

	ttl := time.Duration(h.powCfg.CookieExpireHours) * time.Hour

	cookieValue, err := token.Issue(h.secret, token.Payload{
		V:     token.Version,
		Exp:   time.Now().Add(ttl).Unix(),
		Bits:  task.Bits,
		Scope: task.Scope,
		UA:    task.UAHash,
		IP:    task.IPHash,
		Nonce: req.Nonce,
	})
	if err != nil {
		h.log.WithError(err).Error("issue admission cookie")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(ttl.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}

	if h.server.SecureCookie {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, cookie)

	redirect := req.Redirect
	if h.powCfg.TestMode {
		redirect = InternalPrefix + "/ok"
	} else if redirect == "" {
		redirect = "/"
	}

	resp := frame.EncodeVerifyResponse(frame.VerifyResponse{Redirect: redirect})
	writeFrameBody(w, http.StatusOK, frame.Encode(resp))
}

func verifyErrorMessage(err error) string {
	switch {
	case errors.Is(err, taskstore.ErrNotFound):
		return "task not found or expired"
	case errors.Is(err, taskstore.ErrExpired):
		return "task expired"
	case errors.Is(err, errUAMismatch):
		return "user agent mismatch"
	case errors.Is(err, errIPMismatch):
		return "ip address mismatch"
	case errors.Is(err, errInvalidProof):
		return "invalid proof of work"
	default:
		return "invalid request"
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	f := frame.EncodeError(message)
	writeFrameBody(w, status, frame.Encode(f))
}

func writeFrameBody(w http.ResponseWriter, status int, wire []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(status)
	_, _ = w.Write(wire)
}

// OKHandler serves the health probe; the target of the test-mode redirect.
func OKHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
