package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rkuma140394/vox-veritas-api/api/internal/auth"
	"github.com/rkuma140394/vox-veritas-api/api/internal/handle"
	"github.com/rkuma140394/vox-veritas-api/api/internal/httputil"
	"github.com/rkuma140394/vox-veritas-api/api/internal/ratelimit"
	"github.com/rkuma140394/vox-veritas-api/api/internal/telemetry"
)

type Deps struct {
	ClientKey   string
	CORSOrigins []string
	Limiter     *ratelimit.Limiter
	Metrics     *telemetry.Metrics
	Logger      *slog.Logger
}

// NewRouter wires the public surface: status pages, metrics and the
// authenticated, rate-limited detection API.
func NewRouter(h *handle.Handle, d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.RequestID)
	r.Use(accessLog(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "x-api-key", "X-Request-ID", "X-Request-Timeout"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", h.Status)
	r.Get("/healthz", h.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.ClientKey, d.Logger))
		r.Use(ratelimit.Middleware(d.Limiter, d.Metrics.RecordRateLimitHit))

		r.Post("/detect", h.Detect)
		r.Post("/api/detect", h.Detect)
		r.Post("/v1/detect", h.Detect)

		r.Get("/api/detections", h.Recent)
		r.Put("/api/prompts/{engine}", h.UpdatePrompt)
	})

	return r
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				return
			}
			logger.Info("http request",
				"request_id", httputil.RequestIDFrom(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"remote", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}
