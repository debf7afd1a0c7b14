// Package metrics provides Prometheus metrics for the drivegate server.
//
// Each Metrics owns its own registry so tests and multiple servers in one
// process do not collide. All methods are safe on a nil *Metrics, which
// records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drivegate"

// Metrics holds the gateway's collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	proxyBytesTotal     prometheus.Counter
	proxyDownloadsTotal *prometheus.CounterVec

	copiesTotal       *prometheus.CounterVec
	copiedItemsTotal  *prometheus.CounterVec
	copiesInFlight    prometheus.Gauge
	pollAttempts      prometheus.Histogram
	tokenRefreshTotal *prometheus.CounterVec
}

// New creates a Metrics with a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// HTTP request metrics
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		// Download proxy metrics
		proxyBytesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_bytes_total",
				Help:      "Total bytes streamed to download clients",
			},
		),
		proxyDownloadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proxy_downloads_total",
				Help:      "Total proxied downloads by upstream classification",
			},
			[]string{"kind"},
		),

		// Transfer metrics
		copiesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copies_total",
				Help:      "Total transfer requests by source kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		copiedItemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copied_items_total",
				Help:      "Total folders and files created by transfers",
			},
			[]string{"kind"},
		),
		copiesInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "folder_copies_in_flight",
				Help:      "Number of background folder copies currently running",
			},
		),
		pollAttempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "readiness_poll_attempts",
				Help:      "Metadata polls spent waiting for a copied file to become ready",
				Buckets:   prometheus.LinearBuckets(1, 2, 8),
			},
		),

		// Auth metrics
		tokenRefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_total",
				Help:      "Total access token refreshes",
			},
			[]string{"result"},
		),
	}
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordDownload records a proxied download and the bytes it streamed.
func (m *Metrics) RecordDownload(partial bool, bytes int64) {
	if m == nil {
		return
	}

	kind := "full"
	if partial {
		kind = "partial"
	}

	m.proxyDownloadsTotal.WithLabelValues(kind).Inc()
	m.proxyBytesTotal.Add(float64(bytes))
}

// RecordCopy records the outcome of a transfer request. kind is "file" or
// "folder"; outcome is a short label such as "ready", "pending", "started",
// "completed" or "error".
func (m *Metrics) RecordCopy(kind, outcome string) {
	if m == nil {
		return
	}

	m.copiesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordCopiedItems adds the folders and files a transfer created.
func (m *Metrics) RecordCopiedItems(folders, files int) {
	if m == nil {
		return
	}

	m.copiedItemsTotal.WithLabelValues("folder").Add(float64(folders))
	m.copiedItemsTotal.WithLabelValues("file").Add(float64(files))
}

// FolderCopyStarted and FolderCopyFinished track background copies.
func (m *Metrics) FolderCopyStarted() {
	if m == nil {
		return
	}

	m.copiesInFlight.Inc()
}

func (m *Metrics) FolderCopyFinished() {
	if m == nil {
		return
	}

	m.copiesInFlight.Dec()
}

// RecordPollAttempts records how many polls a readiness wait took.
func (m *Metrics) RecordPollAttempts(n int) {
	if m == nil {
		return
	}

	m.pollAttempts.Observe(float64(n))
}

// RecordTokenRefresh records a token refresh attempt. Its signature matches
// gdrive.TokenCache.OnRefresh.
func (m *Metrics) RecordTokenRefresh(err error) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	}

	m.tokenRefreshTotal.WithLabelValues(result).Inc()
}
