package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Fatalf("second Register should fail on duplicate collectors")
	}

	m.AddReadings(SourceHTTP, 2, 1)
	m.AddReadings(SourceHTTP, 3, 0)
	m.IncQuotaDenials("space_exhausted")

	if got := testutil.ToFloat64(m.readings.WithLabelValues(SourceHTTP, StatusAccepted)); got != 5 {
		t.Fatalf("accepted readings: want=5 got=%v", got)
	}
	if got := testutil.ToFloat64(m.readings.WithLabelValues(SourceHTTP, StatusRejected)); got != 1 {
		t.Fatalf("rejected readings: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.quotaDenials.WithLabelValues("space_exhausted")); got != 1 {
		t.Fatalf("quota denials: want=1 got=%v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.AddReadings(SourceStream, 1, 1)
	m.IncSessionsCreated(true)
	m.IncCaptureWrites(ResultCreated)
	m.ObserveCaptureBytes(10)
	m.SetStreamConnections(3)
}
