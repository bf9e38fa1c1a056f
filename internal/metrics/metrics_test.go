package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perrors "pico-monitor/internal/errors"
)

// TestMetricsCollectorInterface verifies that both implementations satisfy
// MetricsCollector and the error recorder
func TestMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*PrometheusMetrics)(nil)
	var _ MetricsCollector = (*NullMetrics)(nil)
	var _ perrors.ErrorRecorder = (*PrometheusMetrics)(nil)
	t.Log("✅ PrometheusMetrics and NullMetrics implement MetricsCollector")
}

func TestPrometheusMetricsRecording(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncrementSensorReads(SensorDistance)
	pm.IncrementSensorReads(SensorDistance)
	pm.IncrementSensorErrors(SensorClimate)
	pm.IncrementMQTTPublishes()
	pm.IncrementMQTTErrors()
	pm.IncrementInboundMessages()
	pm.IncrementDroppedMessages()
	pm.IncrementOverrides()
	pm.SetLinkStatus(true)
	pm.ObserveCycleDuration(100 * time.Millisecond)
	pm.ObserveCycleDuration(300 * time.Millisecond)
	pm.RecordError(perrors.CodeSensorRead)
	pm.RecordError(perrors.CodeSensorRead)

	output := pm.GetMetricsText()
	for _, want := range []string{
		`sensor_reads_total{sensor="distance"} 2`,
		`sensor_errors_total{sensor="climate"} 1`,
		`sensor_errors_total{sensor="light"} 0`,
		"mqtt_publishes_total 1",
		"mqtt_errors_total 1",
		"inbound_messages_total 1",
		"inbound_dropped_total 1",
		"display_overrides_total 1",
		"link_status 1",
		"cycle_duration_seconds 0.200000",
		"cycle_duration_count 2",
		`errors_total{code="3"} 2`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}

	stats := pm.GetStats()
	if !stats.LinkOnline || stats.SensorReadsTotal[SensorDistance] != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	t.Log("✅ PrometheusMetrics correctly records all metric types")
}

func TestPrometheusServeHTTP(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.SetLinkStatus(false)

	rec := httptest.NewRecorder()
	pm.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "link_status 0") {
		t.Error("Expected link_status 0 in body")
	}
}

func TestNullMetricsNoOp(t *testing.T) {
	var mc MetricsCollector = NewNullMetrics()
	mc.IncrementSensorReads(SensorLight)
	mc.IncrementSensorErrors(SensorLight)
	mc.IncrementMQTTPublishes()
	mc.IncrementMQTTErrors()
	mc.IncrementInboundMessages()
	mc.IncrementDroppedMessages()
	mc.IncrementOverrides()
	mc.SetLinkStatus(true)
	mc.ObserveCycleDuration(time.Millisecond)
	mc.RecordError(perrors.CodeGeneric)
	t.Log("✅ NullMetrics provides a no-op implementation")
}

// TestMetricsCollectorThreadSafety verifies that PrometheusMetrics is thread-safe
func TestMetricsCollectorThreadSafety(t *testing.T) {
	pm := NewPrometheusMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case <-ctx.Done():
					return
				default:
					pm.IncrementSensorReads(SensorDistance)
					pm.IncrementMQTTPublishes()
					pm.ObserveCycleDuration(10 * time.Millisecond)
					pm.SetLinkStatus(true)
					_ = pm.GetMetricsText()
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if pm.GetMetricsText() == "" {
		t.Error("Expected non-empty metrics output")
	}
	t.Log("✅ PrometheusMetrics is thread-safe under concurrent access")
}

func TestPerformanceTrackerSummary(t *testing.T) {
	pt := NewPerformanceTracker(30 * time.Second)
	now := time.Now()
	pt.now = func() time.Time { return now }
	pt.lastSummaryTime = now

	pt.RecordCycle(0, 0)
	pt.RecordCycle(2, 1)
	pt.RecordCycle(0, 0)
	pt.RecordCycle(1, 0)

	stats := pt.GetStats()
	if stats.Cycles != 4 || stats.CompleteCycles != 2 || stats.AbsentReadings != 3 || stats.PublishFailures != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.CompleteRate != 50 {
		t.Errorf("Expected 50%% complete, got %.1f", stats.CompleteRate)
	}

	if pt.PrintSummaryIfNeeded() {
		t.Error("Summary printed before interval elapsed")
	}
	now = now.Add(31 * time.Second)
	if !pt.PrintSummaryIfNeeded() {
		t.Error("Expected summary after interval")
	}
	if pt.GetStats().Cycles != 0 {
		t.Error("Expected counters reset after summary")
	}
}
