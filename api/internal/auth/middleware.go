package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/rkuma140394/vox-veritas-api/api/internal/httputil"
)

const HeaderAPIKey = "x-api-key"

// Middleware admits requests whose x-api-key equals clientKey.
func Middleware(clientKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	want := []byte(clientKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderAPIKey)
			if got == "" || len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logger.Warn("auth failed",
					"request_id", httputil.RequestIDFrom(r.Context()),
					"key_present", got != "",
					"key_prefix", safePrefix(got))
				httputil.WriteAuthError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// safePrefix returns a loggable prefix of a key, never the full value.
func safePrefix(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return ""
}
