package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the seating pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	seatingRuns     prometheus.Counter
	seatsAssigned   prometheus.Counter
	bundleJobs      *prometheus.CounterVec
	mappingMisses   prometheus.Counter
	qpUploads       prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	seatingRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seating_runs_total",
		Help: "Total number of generated seating runs",
	})

	seatsAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seats_assigned_total",
		Help: "Total number of students assigned to seats",
	})

	bundleJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bundle_jobs_total",
		Help: "Total bundle assembly jobs by terminal status",
	}, []string{"status"})

	mappingMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qp_mapping_misses_total",
		Help: "Total subjects skipped during bundling due to mapping or upload gaps",
	})

	qpUploads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qp_uploads_total",
		Help: "Total uploaded question paper PDFs",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, seatingRuns, seatsAssigned, bundleJobs, mappingMisses, qpUploads, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		seatingRuns:     seatingRuns,
		seatsAssigned:   seatsAssigned,
		bundleJobs:      bundleJobs,
		mappingMisses:   mappingMisses,
		qpUploads:       qpUploads,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSeatingRun counts one generated run and its seated students.
func (m *MetricsService) RecordSeatingRun(seated int) {
	if m == nil {
		return
	}
	m.seatingRuns.Inc()
	m.seatsAssigned.Add(float64(seated))
}

// RecordBundleJob counts one finished or failed bundle job and the
// resolution gaps it reported.
func (m *MetricsService) RecordBundleJob(status string, misses int) {
	if m == nil {
		return
	}
	m.bundleJobs.WithLabelValues(status).Inc()
	if misses > 0 {
		m.mappingMisses.Add(float64(misses))
	}
}

// RecordQPUpload counts one stored question paper upload.
func (m *MetricsService) RecordQPUpload() {
	if m == nil {
		return
	}
	m.qpUploads.Inc()
}
