// Package ratelimit bounds the number of requests a client address can make
// to a single route inside a time window.
//
// Counting is delegated to httprate; the counters live either in a process
// local bigcache instance (lost on restart) or in Redis when several bridge
// instances must share the same windows.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/andrebq/puente/internal/logutil"
)

type (
	Rule struct {
		// Name identifies the route, counters of different rules never mix.
		Name   string
		Limit  int
		Window time.Duration
	}

	Options struct {
		// TrustProxy reads the client address from X-Forwarded-For / X-Real-IP.
		TrustProxy bool
		// Counter defaults to an in-memory counter.
		Counter httprate.LimitCounter
	}
)

const (
	TooManyRequestsMessage = "Demasiadas solicitudes, intenta más tarde"
)

// Middleware enforces rule on every request that reaches the wrapped handler.
func Middleware(rule Rule, opts Options) func(http.Handler) http.Handler {
	addr := httprate.KeyByIP
	if opts.TrustProxy {
		addr = httprate.KeyByRealIP
	}
	options := []httprate.Option{
		httprate.WithKeyFuncs(httprate.Key(rule.Name), addr),
		httprate.WithLimitHandler(tooManyRequests(rule)),
		httprate.WithErrorHandler(counterFailure(rule)),
	}
	if opts.Counter != nil {
		options = append(options, httprate.WithLimitCounter(opts.Counter))
	}
	return httprate.Limit(rule.Limit, rule.Window, options...)
}

func tooManyRequests(rule Rule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logutil.GetOrDefault(r.Context())
		log.Warn().Str("rule", rule.Name).Str("remote_addr", r.RemoteAddr).Msg("Rate limit exceeded")
		writeJSON(w, http.StatusTooManyRequests, TooManyRequestsMessage)
	}
}

// counterFailure rejects the request, httprate never calls the next handler
// once the counter store fails.
func counterFailure(rule Rule) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("rule", rule.Name).Msg("Unable to update rate limit counters")
		writeJSON(w, http.StatusServiceUnavailable, "Límite de solicitudes no disponible")
	}
}

func writeJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{false, msg})
}
