// Package monitoring exposes Prometheus metrics for HTTP traffic and course progression.
package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Step gate decisions by action and reason",
		},
		[]string{"action", "reason"},
	)

	LessonCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_completions_total",
			Help: "Lesson completion requests by outcome",
		},
		[]string{"outcome"},
	)

	TTSTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_request_transitions_total",
			Help: "Content generation job status transitions by target status",
		},
		[]string{"status"},
	)

	TTSSynthesisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tts_synthesis_duration_seconds",
			Help:    "Duration of audio synthesis for one job",
			Buckets: []float64{1, 5, 15, 30, 60, 120},
		},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			GateDecisions,
			LessonCompletions,
			TTSTransitions,
			TTSSynthesisDuration,
		)
	})
}

// MetricsMiddleware records request count and duration per route pattern
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
