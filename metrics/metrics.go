// Package metrics provides Prometheus collectors for the ingestion paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricReadingsTotal        = "telemetry_readings_total"
	MetricSessionsCreatedTotal = "telemetry_sessions_created_total"
	MetricCaptureWritesTotal   = "telemetry_capture_writes_total"
	MetricQuotaDenialsTotal    = "telemetry_quota_denials_total"
	MetricCaptureBytes         = "telemetry_capture_payload_bytes"
	MetricStreamConnections    = "telemetry_stream_connections"
)

const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"

	ResultCreated = "created"
	ResultUpdated = "updated"
	ResultDenied  = "denied"
	ResultFailed  = "failed"

	SourceHTTP   = "http"
	SourceStream = "websocket"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	readings          *prometheus.CounterVec
	sessionsCreated   *prometheus.CounterVec
	captureWrites     *prometheus.CounterVec
	quotaDenials      *prometheus.CounterVec
	captureBytes      prometheus.Histogram
	streamConnections prometheus.Gauge
}

// NewMetrics creates the collectors without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReadingsTotal,
				Help: "Sensor readings received by ingest source and status",
			},
			[]string{"source", "status"},
		),
		sessionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSessionsCreatedTotal,
				Help: "Sessions created by the resolver, by whether the token was client supplied",
			},
			[]string{"token"},
		),
		captureWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCaptureWritesTotal,
				Help: "Combined capture writes by result",
			},
			[]string{"result"},
		),
		quotaDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricQuotaDenialsTotal,
				Help: "Capture writes refused by the quota check, by reason",
			},
			[]string{"reason"},
		),
		captureBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricCaptureBytes,
				Help:    "Size of stored combined capture payloads in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
		streamConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricStreamConnections,
				Help: "Devices currently connected to the websocket stream",
			},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.readings,
		m.sessionsCreated,
		m.captureWrites,
		m.quotaDenials,
		m.captureBytes,
		m.streamConnections,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) AddReadings(source string, accepted, rejected int) {
	if m == nil {
		return
	}
	if accepted > 0 {
		m.readings.WithLabelValues(source, StatusAccepted).Add(float64(accepted))
	}
	if rejected > 0 {
		m.readings.WithLabelValues(source, StatusRejected).Add(float64(rejected))
	}
}

// IncSessionsCreated counts a new session. generated is true when the server
// minted the token.
func (m *Metrics) IncSessionsCreated(generated bool) {
	if m == nil {
		return
	}
	label := "client"
	if generated {
		label = "generated"
	}
	m.sessionsCreated.WithLabelValues(label).Inc()
}

func (m *Metrics) IncCaptureWrites(result string) {
	if m == nil {
		return
	}
	m.captureWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) IncQuotaDenials(reason string) {
	if m == nil {
		return
	}
	m.quotaDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveCaptureBytes(n int64) {
	if m == nil {
		return
	}
	m.captureBytes.Observe(float64(n))
}

func (m *Metrics) SetStreamConnections(n int) {
	if m == nil {
		return
	}
	m.streamConnections.Set(float64(n))
}
