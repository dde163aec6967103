package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/rkuma140394/vox-veritas-api/api/internal/httputil"
)

// Middleware rejects requests over the per-IP limit with 429 and Retry-After.
// onReject, when set, is called for every rejected request.
func Middleware(l *Limiter, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Allow(r.Context(), clientIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.rpm, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if onReject != nil {
				onReject()
			}
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			httputil.WriteRateLimitError(w)
		})
	}
}

// clientIP expects middleware.RealIP to have already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
