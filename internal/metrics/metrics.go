package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM generation calls",
		},
		[]string{"phase", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM generation call duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"phase"},
	)

	LinksDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_links_discovered_total",
			Help: "Total candidate links returned by scout calls before dedup",
		},
	)

	EventsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_events_extracted_total",
			Help: "Total validated events extracted by explorer batches",
		},
	)

	LinksRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorer_links_rejected_total",
			Help: "Total links rejected by the event-validity policy",
		},
	)

	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "itinerary_stream_connections_active",
			Help: "Number of active itinerary SSE connections",
		},
	)
)

// Middleware records request counts and latencies for every route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// ObserveLLMCall records one generation call outcome for a pipeline phase.
func ObserveLLMCall(phase string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMRequestsTotal.WithLabelValues(phase, status).Inc()
	LLMRequestDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
