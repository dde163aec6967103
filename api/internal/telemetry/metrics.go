package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the detection service.
type Metrics struct {
	reg *prometheus.Registry

	RequestTotal      *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	EngineAttempts    *prometheus.CounterVec
	RateLimitHits     prometheus.Counter
}

// NewMetrics creates the metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxveritas_detect_requests_total",
			Help: "Detection requests by engine, outcome and verdict.",
		}, []string{"engine", "status", "classification"}),

		RequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voxveritas_detect_duration_ms",
			Help:    "End-to-end detection latency in milliseconds, including retries.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"engine"}),

		EngineAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxveritas_engine_attempts_total",
			Help: "Upstream model calls, including retries.",
		}, []string{"engine", "outcome"}),

		RateLimitHits: f.NewCounter(prometheus.CounterOpts{
			Name: "voxveritas_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}
}

// RequestLabels holds the values recorded for one finished request.
type RequestLabels struct {
	Engine         string
	Status         string // success | error kind
	Classification string
	Attempts       int
	DurationMs     float64
}

// RecordRequest records metrics for a completed request. Nil-safe.
func (m *Metrics) RecordRequest(l RequestLabels) {
	if m == nil {
		return
	}
	engine := l.Engine
	if engine == "" {
		engine = "none"
	}
	m.RequestTotal.WithLabelValues(engine, l.Status, l.Classification).Inc()
	if l.Attempts > 0 {
		m.RequestDurationMs.WithLabelValues(engine).Observe(l.DurationMs)
		if l.Attempts > 1 {
			m.EngineAttempts.WithLabelValues(engine, "retried").Add(float64(l.Attempts - 1))
		}
		m.EngineAttempts.WithLabelValues(engine, "final").Inc()
	}
}

func (m *Metrics) RecordRateLimitHit() {
	if m == nil {
		return
	}
	m.RateLimitHits.Inc()
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
