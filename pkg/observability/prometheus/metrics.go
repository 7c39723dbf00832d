package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "lineserve"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Connection metrics
	ConnectionsTotal   *prometheus.CounterVec
	ConnectionDuration *prometheus.HistogramVec
	ResponseSize       *prometheus.HistogramVec
	ConnectionPanics   prometheus.Counter

	// Server metrics
	ServerAcceptedConnections prometheus.Counter
	ServerRejectedConnections prometheus.Counter
	ServerActiveConnections   prometheus.Gauge
	ServerQueuedConnections   prometheus.Gauge
	ServerQueueUtilization    prometheus.Gauge
	ServerWorkers             prometheus.Gauge

	// Server counters arrive as cumulative snapshots; these remember the
	// last values so only the delta is added.
	serverMu     sync.Mutex
	lastAccepted int64
	lastRejected int64
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a new metrics collection
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	f := promauto.With(registerer)

	return &Metrics{
		ConnectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineserve_connections_total",
				Help: "Total number of handled connections",
			},
			[]string{"status"},
		),
		ConnectionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lineserve_connection_duration_seconds",
				Help:    "Time from accept to connection close in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		ResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lineserve_response_size_bytes",
				Help:    "Response size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
			},
			[]string{"status"},
		),
		ConnectionPanics: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_connection_panics_total",
				Help: "Total number of connection handlers that panicked",
			},
		),

		ServerAcceptedConnections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_server_accepted_connections_total",
				Help: "Total number of accepted connections",
			},
		),
		ServerRejectedConnections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lineserve_server_rejected_connections_total",
				Help: "Total number of connections rejected by backpressure",
			},
		),
		ServerActiveConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lineserve_server_active_connections",
				Help: "Connections queued or being handled",
			},
		),
		ServerQueuedConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lineserve_server_queued_connections",
				Help: "Connections waiting for a worker",
			},
		),
		ServerQueueUtilization: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lineserve_server_queue_utilization",
				Help: "Worker queue utilization percentage (0-100)",
			},
		),
		ServerWorkers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "lineserve_server_workers",
				Help: "Number of connection workers",
			},
		),
	}
}

// RecordConnection records one finished connection
func (m *Metrics) RecordConnection(status int, duration time.Duration, responseSize int) {
	label := statusCodeString(status)
	m.ConnectionsTotal.WithLabelValues(label).Inc()
	m.ConnectionDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(label).Observe(float64(responseSize))
}

// UpdateServer updates server metrics from cumulative totals and current gauges
func (m *Metrics) UpdateServer(accepted, rejected, active, queued int64, utilization float64, workers int) {
	m.serverMu.Lock()
	if d := accepted - m.lastAccepted; d > 0 {
		m.ServerAcceptedConnections.Add(float64(d))
	}
	if d := rejected - m.lastRejected; d > 0 {
		m.ServerRejectedConnections.Add(float64(d))
	}
	m.lastAccepted, m.lastRejected = accepted, rejected
	m.serverMu.Unlock()

	m.ServerActiveConnections.Set(float64(active))
	m.ServerQueuedConnections.Set(float64(queued))
	m.ServerQueueUtilization.Set(utilization)
	m.ServerWorkers.Set(float64(workers))
}

// statusCodeString converts status code to string
func statusCodeString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "none"
	}
}
