// Package api exposes the bridge over HTTP: JSON in, JSON out.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	"github.com/andrebq/puente/bridge"
	"github.com/andrebq/puente/directory"
	"github.com/andrebq/puente/internal/config"
	"github.com/andrebq/puente/internal/logutil"
	"github.com/andrebq/puente/internal/ratelimit"
)

const (
	maxRequestBody = 1 << 20

	msgInvalidJSON = "JSON inválido"
	msgInternal    = "Error interno"
)

type (
	Options struct {
		Logger zerolog.Logger
		// Counter stores rate limit windows, nil keeps them in httprate's
		// own in-memory counter.
		Counter httprate.LimitCounter
	}

	handler struct {
		cfg *config.Config
		svc *bridge.Service
	}

	failure struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Raw     string `json:"raw,omitempty"`
	}
)

// AsHandler returns the complete HTTP surface of the bridge.
func AsHandler(ctx context.Context, cfg *config.Config, svc *bridge.Service, opts Options) http.Handler {
	h := &handler{cfg: cfg, svc: svc}
	limits := ratelimit.Options{TrustProxy: cfg.TrustProxy, Counter: opts.Counter}
	login := ratelimit.Middleware(ratelimit.Rule{Name: "login", Limit: cfg.LoginRateLimit, Window: cfg.RateLimitWindow}, limits)
	register := ratelimit.Middleware(ratelimit.Rule{Name: "register", Limit: cfg.RegisterRateLimit, Window: cfg.RateLimitWindow}, limits)
	plain := func(next http.Handler) http.Handler { return next }

	router := httprouter.New()
	router.HandlerFunc("GET", "/", h.health)
	route := func(path string, limit func(http.Handler) http.Handler, fn http.HandlerFunc) {
		router.Handler("POST", path, limit(h.requireDirectory(fn)))
	}
	route("/check", plain, h.check)
	route("/login", login, h.login)
	route("/google_login", login, h.googleLogin)
	route("/register", register, h.register)
	route("/delete", plain, h.disable)
	route("/bootstrap_admin", plain, h.bootstrap)

	var out http.Handler = router
	out = cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         300,
	})(out)
	out = secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "no-referrer",
	}).Handler(out)
	return logutil.Requests(opts.Logger)(out)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		OK            bool   `json:"ok"`
		Service       string `json:"service"`
		GASConfigured bool   `json:"gasConfigured"`
	}{true, h.cfg.ServiceName, h.cfg.GASConfigured()})
}

// requireDirectory fails every API call while the directory endpoint is unknown.
func (h *handler) requireDirectory(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.GASConfigured() {
			writeError(w, r, directory.NotConfigured{})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) check(w http.ResponseWriter, r *http.Request) {
	relay(w, r)(h.svc.CheckEmpty(r.Context()))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req bridge.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		bridge.Session
	}{true, sess})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req bridge.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	relay(w, r)(h.svc.Register(r.Context(), req))
}

func (h *handler) disable(w http.ResponseWriter, r *http.Request) {
	var req bridge.DeleteRequest
	if !decode(w, r, &req) {
		return
	}
	relay(w, r)(h.svc.Disable(r.Context(), req))
}

func (h *handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	var req bridge.GoogleLoginRequest
	if !decode(w, r, &req) {
		return
	}
	relay(w, r)(h.svc.GoogleLogin(r.Context(), req))
}

func (h *handler) bootstrap(w http.ResponseWriter, r *http.Request) {
	relay(w, r)(h.svc.BootstrapAdmin(r.Context()))
}

// decode reads the request body into out. An empty body leaves out
// untouched so the usual required field messages apply.
func decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	err := dec.Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	log := logutil.GetOrDefault(r.Context())
	log.Debug().Err(err).Msg("Unable to decode request body")
	writeJSON(w, http.StatusBadRequest, failure{Message: msgInvalidJSON})
	return false
}

func relay(w http.ResponseWriter, r *http.Request) func(*directory.Result, error) {
	return func(res *directory.Result, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeResult(w, res)
	}
}

func writeResult(w http.ResponseWriter, res *directory.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}

// writeError maps every failure of the bridge to its HTTP answer.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logutil.GetOrDefault(r.Context())
	var (
		rejection bridge.Rejection
		upstream  bridge.UpstreamFailure
		protocol  directory.ProtocolError
		timeout   directory.Timeout
		transport directory.TransportError
	)
	switch {
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusOK, failure{Message: rejection.Message})
	case errors.As(err, &upstream):
		log.Warn().Int("status", upstream.Result.Status).Msg("Relaying directory failure")
		writeResult(w, upstream.Result)
	case errors.As(err, &protocol):
		log.Error().Int("status", protocol.Status).Msg("Directory answered with a non-JSON payload")
		writeJSON(w, protocol.Status, failure{Message: protocol.Error(), Raw: protocol.Raw})
	case errors.Is(err, directory.NotConfigured{}):
		writeJSON(w, http.StatusInternalServerError, failure{Message: err.Error()})
	case errors.As(err, &timeout):
		log.Error().Dur("after", timeout.After).Msg("Directory call timed out")
		writeJSON(w, http.StatusInternalServerError, failure{Message: timeout.Error()})
	case errors.As(err, &transport):
		log.Error().Err(err).Msg("Unable to reach the directory")
		writeJSON(w, http.StatusInternalServerError, failure{Message: transport.Error()})
	default:
		log.Error().Err(err).Msg("Unexpected failure")
		writeJSON(w, http.StatusInternalServerError, failure{Message: msgInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
