package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/daap14/contractd/internal/api/response"
)

// WriteRateLimit throttles state-changing requests (POST, PUT, PATCH, DELETE)
// through a single token bucket. Reads are never limited. A non-positive
// perSecond disables the limiter.
func WriteRateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWrite(r.Method) && !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				response.Err(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many write requests, retry later", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
