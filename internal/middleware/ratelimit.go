package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/sakif/pyrunner/internal/apperror"
	"github.com/sakif/pyrunner/internal/metrics"
	"github.com/sakif/pyrunner/internal/model"
	"github.com/sakif/pyrunner/internal/ratelimit"
)

// RateLimit returns middleware that gates every request through the given
// sliding-window limiter, keyed by client address. Each endpoint gets its own
// limiter instance (and thus its own policy and state) injected here — the
// two policies never share a table.
//
// A rejected request is terminal: it short-circuits with 429 and the same
// JSON shape the execution endpoints return, naming the budget that was
// exceeded. It never reaches the handler.
func RateLimit(limiter *ratelimit.Limiter, endpoint string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			if !limiter.Allow(client) {
				metrics.RateLimitRejections.WithLabelValues(endpoint).Inc()
				logger.Warn("request rejected by rate limit",
					slog.String("endpoint", endpoint),
					slog.String("client", client),
				)

				policy := limiter.Policy()
				appErr := apperror.RateLimited(policy.MaxRequests, policy.WindowSeconds())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(model.ExecutionResult{
					Success: false,
					Output:  "",
					Errors:  appErr.Message,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr reduces RemoteAddr to just the host part, so the same client on
// different source ports counts as one identity. chi's RealIP middleware has
// already substituted the proxy-forwarded address where applicable.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
