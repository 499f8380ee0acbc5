package httpadapter

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tawandam/policy-assistant/internal/observability/metrics"
)

// RateLimiter applies one process-wide token bucket across all endpoints.
// The chat pipeline fans out to paid provider APIs, so the bucket protects
// spend as much as the process.
type RateLimiter struct {
	service string
	limiter *rate.Limiter
	metrics *metrics.HTTPServerMetrics
}

func NewRateLimiter(service string, rps float64, burst int, serverMetrics *metrics.HTTPServerMetrics) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: serverMetrics,
	}
}

func (rl *RateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.limiter.Allow() {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimited(rl.service, r.URL.Path)
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
