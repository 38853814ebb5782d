package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	uploadTotal     *prometheus.CounterVec
	reportTotal     prometheus.Counter
}

// NewMetricsService registers the collectors.
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

	uploadTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "form_uploads_total",
		Help: "Total number of stored form attachments by slot",
	}, []string{"slot"})

	reportTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "form_reports_rendered_total",
		Help: "Total number of rendered PDF reports",
	})

	registry.MustRegister(requestDuration, requestTotal, uploadTotal, reportTotal)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		uploadTotal:     uploadTotal,
		reportTotal:     reportTotal,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one finished request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := fmt.Sprintf("%d", status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// CountUpload records one stored attachment.
func (s *MetricsService) CountUpload(slot string) {
	s.uploadTotal.WithLabelValues(slot).Inc()
}

// CountReport records one rendered report.
func (s *MetricsService) CountReport() {
	s.reportTotal.Inc()
}
