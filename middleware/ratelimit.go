package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	rampguard "github.com/zestpay/rampguard"
)

// Extractor pulls the identifier and client IP used for rate limiting from a
// request. Return an empty identifier to skip the per-identifier stages, or
// an empty ip to let [ClientIP] supply one from RemoteAddr.
type Extractor func(r *http.Request) (identifier, ip string)

// Options adjusts how [RateLimitWith] reacts to limiter outcomes.
type Options struct {
	// FailOpen admits requests when the limiter store is unreachable
	// instead of answering 503.
	FailOpen bool

	OnDenied func(r *http.Request, res rampguard.Result)
	OnError  func(r *http.Request, err error)
}

type resultContextKey struct{}

// ResultFromContext returns the [rampguard.Result] injected by the rate limit
// middleware for an admitted request.
func ResultFromContext(ctx context.Context) (rampguard.Result, bool) {
	res, ok := ctx.Value(resultContextKey{}).(rampguard.Result)
	return res, ok
}

// RateLimit wraps a handler with [rampguard.Engine.CheckLimit] enforcement
// for one subject, answering 429 on denial and 503 when the limiter store is
// unreachable.
func RateLimit(engine *rampguard.Engine, subject string, extract Extractor) func(http.Handler) http.Handler {
	return RateLimitWith(engine, subject, extract, Options{})
}

// RateLimitWith is [RateLimit] with explicit [Options].
func RateLimitWith(engine *rampguard.Engine, subject string, extract Extractor, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnavailable(w)
				return
			}

			var identifier, ip string
			if extract != nil {
				identifier, ip = extract(r)
			}
			if ip == "" {
				ip = ClientIP(r)
			}

			ctx := rampguard.WithClientIP(r.Context(), ip)

			res, err := engine.CheckLimit(ctx, subject, identifier, ip)
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(r, err)
				}
				if opts.FailOpen {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				writeUnavailable(w)
				return
			}

			if !res.Allowed {
				if opts.OnDenied != nil {
					opts.OnDenied(r, res)
				}
				writeDenied(w, res)
				return
			}

			ctx = context.WithValue(ctx, resultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the host portion of the request’s RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type deniedBody struct {
	Message           string `json:"message"`
	Attempt           int    `json:"attempt,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func writeDenied(w http.ResponseWriter, res rampguard.Result) {
	if res.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter/time.Second)))
	}
	writeJSON(w, http.StatusTooManyRequests, deniedBody{
		Message:           res.Message,
		Attempt:           res.Attempt,
		RetryAfterSeconds: int(res.RetryAfter / time.Second),
	})
}

func writeUnavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, deniedBody{Message: "rate limiter unavailable"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
