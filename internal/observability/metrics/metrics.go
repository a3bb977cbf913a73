// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal           *prometheus.CounterVec
	classificationDuration *prometheus.HistogramVec
	fallbackEngagements    prometheus.Counter
	reportsRendered        prometheus.Counter
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperanalysis",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperanalysis",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paperanalysis",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperanalysis",
			Subsystem: "pipeline",
			Name:      "uploads_total",
			Help:      "Total document uploads by outcome.",
		},
		[]string{"service", "outcome"},
	)
	classificationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperanalysis",
			Subsystem: "pipeline",
			Name:      "classification_duration_seconds",
			Help:      "End-to-end classification duration per upload.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service"},
	)
	fallbackEngagements := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paperanalysis",
			Subsystem: "pipeline",
			Name:      "fallback_engagements_total",
			Help:      "Total classifications served by the local fallback.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reportsRendered := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paperanalysis",
			Subsystem: "pipeline",
			Name:      "reports_rendered_total",
			Help:      "Total report artifacts rendered for download.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		classificationDuration,
		fallbackEngagements,
		reportsRendered,
	)

	return &ServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		uploadsTotal:           uploadsTotal,
		classificationDuration: classificationDuration,
		fallbackEngagements:    fallbackEngagements,
		reportsRendered:        reportsRendered,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses id-bearing routes so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/analysis/") && path != "/analysis/batch-delete":
		return "/analysis/{id}"
	case strings.HasPrefix(path, "/report/"):
		return "/report/{id}"
	default:
		return path
	}
}

func (m *ServerMetrics) RecordUpload(service, outcome string, classification time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, outcome).Inc()
	if classification > 0 {
		m.classificationDuration.WithLabelValues(service).Observe(classification.Seconds())
	}
}

// FallbackCounter satisfies the fallback simulator's engagement counter.
func (m *ServerMetrics) FallbackCounter() prometheus.Counter {
	return m.fallbackEngagements
}

func (m *ServerMetrics) RecordReportRendered() {
	m.reportsRendered.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
