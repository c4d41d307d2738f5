package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the gateway
type Metrics struct {
	registry *prometheus.Registry

	// Upload metrics
	UploadsReceived prometheus.Counter
	UploadsRejected *prometheus.CounterVec
	UploadSize      prometheus.Histogram

	// Provider call metrics
	ProviderRequests  prometheus.Counter
	ProviderSuccesses prometheus.Counter
	ProviderFailures  *prometheus.CounterVec
	ProviderDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics on a private registry, so several instances
// can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		UploadsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_uploads_received_total",
			Help: "Total number of audio uploads accepted for transcription",
		}),
		UploadsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_uploads_rejected_total",
			Help: "Total number of uploads rejected before reaching the provider",
		}, []string{"reason"}),
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_upload_size_bytes",
			Help:    "Size of accepted audio uploads",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 12), // 16KB to ~32MB
		}),

		ProviderRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_provider_requests_total",
			Help: "Total number of outbound speech-to-text calls",
		}),
		ProviderSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_provider_successes_total",
			Help: "Total number of successful outbound speech-to-text calls",
		}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_provider_failures_total",
			Help: "Total number of failed outbound speech-to-text calls",
		}, []string{"kind"}),
		ProviderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_provider_duration_seconds",
			Help:    "Duration of outbound speech-to-text calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3 minutes
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordUpload records an upload that passed validation
func (m *Metrics) RecordUpload(sizeBytes int) {
	m.UploadsReceived.Inc()
	m.UploadSize.Observe(float64(sizeBytes))
}

// RecordRejectedUpload records an upload turned away before the provider call
func (m *Metrics) RecordRejectedUpload(reason string) {
	m.UploadsRejected.WithLabelValues(reason).Inc()
}

// RecordProviderRequest increments the outbound call counter
func (m *Metrics) RecordProviderRequest() {
	m.ProviderRequests.Inc()
}

// RecordProviderSuccess records a successful provider call
func (m *Metrics) RecordProviderSuccess(durationSeconds float64) {
	m.ProviderSuccesses.Inc()
	m.ProviderDuration.Observe(durationSeconds)
}

// RecordProviderFailure records a failed provider call
func (m *Metrics) RecordProviderFailure(kind string, durationSeconds float64) {
	m.ProviderFailures.WithLabelValues(kind).Inc()
	m.ProviderDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
