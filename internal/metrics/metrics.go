package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upload outcomes by result: stored, rejected, too_large, failed
	UploadTotal *prometheus.CounterVec
	UploadBytes prometheus.Counter

	BackupTotal *prometheus.CounterVec

	RateLimitedTotal prometheus.Counter
	LiveClients      prometheus.Gauge
}

var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// New returns the process-wide metrics, registering them on first use
func New() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		HTTPRequestTotal: registerOrGet(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"})).(*prometheus.CounterVec),

		HTTPRequestDuration: registerOrGet(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})).(*prometheus.HistogramVec),

		UploadTotal: registerOrGet(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_uploads_total",
			Help: "Gallery uploads by result",
		}, []string{"result"})).(*prometheus.CounterVec),

		UploadBytes: registerOrGet(prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gallery_upload_bytes_total",
			Help: "Bytes received by accepted gallery uploads",
		})).(prometheus.Counter),

		BackupTotal: registerOrGet(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "database_backups_total",
			Help: "Database backups by status",
		}, []string{"status"})).(*prometheus.CounterVec),

		RateLimitedTotal: registerOrGet(prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Requests refused by the rate limiter",
		})).(prometheus.Counter),

		LiveClients: registerOrGet(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "live_update_clients",
			Help: "Connected live-update WebSocket clients",
		})).(prometheus.Gauge),
	}

	globalMetrics = m
	return m
}

// registerOrGet registers c, or returns the collector already registered under the same name
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
