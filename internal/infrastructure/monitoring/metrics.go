package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for read/write/resize counters.
const (
	OutcomeOK          = "ok"
	OutcomeWouldBlock  = "would_block"
	OutcomeInterrupted = "interrupted"
	OutcomeRejected    = "rejected"
	OutcomeInvalid     = "invalid"
	OutcomeBusy        = "busy"
	OutcomeError       = "error"
)

// Metrics holds all Prometheus metrics recorded by the API layer.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Channel I/O metrics
	ReadsTotal   *prometheus.CounterVec
	WritesTotal  *prometheus.CounterVec
	BytesRead    *prometheus.CounterVec
	BytesWritten *prometheus.CounterVec

	// Control surface metrics
	ResizesTotal *prometheus.CounterVec
	OpensTotal   *prometheus.CounterVec

	// Streaming metrics
	StreamConnections prometheus.Gauge
}

// NewMetrics creates and registers the metric set with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kanal_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_channel_reads_total",
				Help: "Total number of channel read operations by outcome",
			},
			[]string{"channel", "outcome"},
		),
		WritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_channel_writes_total",
				Help: "Total number of channel write operations by outcome",
			},
			[]string{"channel", "outcome"},
		),
		BytesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_channel_read_bytes_total",
				Help: "Total bytes read from channels",
			},
			[]string{"channel"},
		),
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_channel_written_bytes_total",
				Help: "Total bytes written to channels",
			},
			[]string{"channel"},
		),
		ResizesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_channel_resizes_total",
				Help: "Total number of capacity changes by outcome",
			},
			[]string{"channel", "outcome"},
		),
		OpensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanal_channel_opens_total",
				Help: "Total number of open attempts by mode and outcome",
			},
			[]string{"channel", "mode", "outcome"},
		),
		StreamConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kanal_stream_connections",
				Help: "Number of active WebSocket stream connections",
			},
		),
	}
}

// RecordRead counts one read operation and its transferred bytes.
func (m *Metrics) RecordRead(channel int, outcome string, n int) {
	id := strconv.Itoa(channel)
	m.ReadsTotal.WithLabelValues(id, outcome).Inc()
	if n > 0 {
		m.BytesRead.WithLabelValues(id).Add(float64(n))
	}
}

// RecordWrite counts one write operation and its transferred bytes.
func (m *Metrics) RecordWrite(channel int, outcome string, n int) {
	id := strconv.Itoa(channel)
	m.WritesTotal.WithLabelValues(id, outcome).Inc()
	if n > 0 {
		m.BytesWritten.WithLabelValues(id).Add(float64(n))
	}
}

// RecordResize counts one capacity change attempt.
func (m *Metrics) RecordResize(channel int, outcome string) {
	m.ResizesTotal.WithLabelValues(strconv.Itoa(channel), outcome).Inc()
}

// RecordOpen counts one open attempt.
func (m *Metrics) RecordOpen(channel int, mode, outcome string) {
	m.OpensTotal.WithLabelValues(strconv.Itoa(channel), mode, outcome).Inc()
}
