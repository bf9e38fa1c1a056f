package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// PrometheusMetrics tracks node metrics in Prometheus text format
type PrometheusMetrics struct {
	// Counters
	sensorReadsTotal   map[string]int64
	sensorErrorsTotal  map[string]int64
	mqttPublishesTotal int64
	mqttErrorsTotal    int64
	inboundTotal       int64
	droppedTotal       int64
	overridesTotal     int64
	errorsByCode       map[int]int64

	// Gauges
	linkStatus int64 // 1 = connected, 0 = disconnected

	// Simplified histogram: sum and count for the average
	cycleDurationSum   float64
	cycleDurationCount int64

	mu sync.RWMutex
}

// NewPrometheusMetrics creates a new Prometheus metrics collector
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		sensorReadsTotal:  make(map[string]int64),
		sensorErrorsTotal: make(map[string]int64),
		errorsByCode:      make(map[int]int64),
	}
}

func (pm *PrometheusMetrics) IncrementSensorReads(sensor string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.sensorReadsTotal[sensor]++
}

func (pm *PrometheusMetrics) IncrementSensorErrors(sensor string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.sensorErrorsTotal[sensor]++
}

func (pm *PrometheusMetrics) IncrementMQTTPublishes() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.mqttPublishesTotal++
}

func (pm *PrometheusMetrics) IncrementMQTTErrors() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.mqttErrorsTotal++
}

func (pm *PrometheusMetrics) IncrementInboundMessages() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.inboundTotal++
}

func (pm *PrometheusMetrics) IncrementDroppedMessages() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.droppedTotal++
}

func (pm *PrometheusMetrics) IncrementOverrides() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.overridesTotal++
}

// SetLinkStatus sets the link status (1 = connected, 0 = disconnected)
func (pm *PrometheusMetrics) SetLinkStatus(online bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if online {
		pm.linkStatus = 1
	} else {
		pm.linkStatus = 0
	}
}

func (pm *PrometheusMetrics) ObserveCycleDuration(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.cycleDurationSum += duration.Seconds()
	pm.cycleDurationCount++
}

func (pm *PrometheusMetrics) RecordError(code int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.errorsByCode[code]++
}

// GetMetricsText returns metrics in Prometheus text format
func (pm *PrometheusMetrics) GetMetricsText() string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var b strings.Builder
	writeLabeled(&b, "sensor_reads_total", "Total number of sensor readings that produced a value", pm.sensorReadsTotal)
	writeLabeled(&b, "sensor_errors_total", "Total number of sensor readings reported as absent", pm.sensorErrorsTotal)
	writeMetric(&b, "mqtt_publishes_total", "Total number of telemetry publishes", "counter", pm.mqttPublishesTotal)
	writeMetric(&b, "mqtt_errors_total", "Total number of failed telemetry publishes", "counter", pm.mqttErrorsTotal)
	writeMetric(&b, "inbound_messages_total", "Total number of command messages queued", "counter", pm.inboundTotal)
	writeMetric(&b, "inbound_dropped_total", "Total number of command messages dropped on a full queue", "counter", pm.droppedTotal)
	writeMetric(&b, "display_overrides_total", "Total number of message overrides shown", "counter", pm.overridesTotal)
	writeMetric(&b, "link_status", "Current broker link status (1 = connected, 0 = disconnected)", "gauge", pm.linkStatus)

	var avg float64
	if pm.cycleDurationCount > 0 {
		avg = pm.cycleDurationSum / float64(pm.cycleDurationCount)
	}
	fmt.Fprintf(&b, "# HELP cycle_duration_seconds Average loop iteration duration in seconds\n# TYPE cycle_duration_seconds gauge\ncycle_duration_seconds %.6f\n\n", avg)
	writeMetric(&b, "cycle_duration_count", "Total number of loop iterations observed", "counter", pm.cycleDurationCount)

	codes := make([]int, 0, len(pm.errorsByCode))
	for code := range pm.errorsByCode {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	b.WriteString("# HELP errors_total Total number of handled errors by diagnostic code\n# TYPE errors_total counter\n")
	for _, code := range codes {
		fmt.Fprintf(&b, "errors_total{code=\"%d\"} %d\n", code, pm.errorsByCode[code])
	}
	return b.String()
}

func writeMetric(b *strings.Builder, name, help, kind string, v int64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, v)
}

func writeLabeled(b *strings.Builder, name, help string, values map[string]int64) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	for _, sensor := range []string{SensorDistance, SensorClimate, SensorLight} {
		fmt.Fprintf(b, "%s{sensor=%q} %d\n", name, sensor, values[sensor])
	}
	b.WriteString("\n")
}

// ServeHTTP implements http.Handler for the /metrics endpoint
func (pm *PrometheusMetrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, pm.GetMetricsText())
}

// MetricStats represents current metric values
type MetricStats struct {
	SensorReadsTotal   map[string]int64
	SensorErrorsTotal  map[string]int64
	MQTTPublishesTotal int64
	MQTTErrorsTotal    int64
	InboundTotal       int64
	DroppedTotal       int64
	OverridesTotal     int64
	LinkOnline         bool
	AvgCycleDuration   float64
	CycleCount         int64
}

// GetStats returns a copy of the current metric values
func (pm *PrometheusMetrics) GetStats() MetricStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var avg float64
	if pm.cycleDurationCount > 0 {
		avg = pm.cycleDurationSum / float64(pm.cycleDurationCount)
	}
	reads := make(map[string]int64, len(pm.sensorReadsTotal))
	for k, v := range pm.sensorReadsTotal {
		reads[k] = v
	}
	errs := make(map[string]int64, len(pm.sensorErrorsTotal))
	for k, v := range pm.sensorErrorsTotal {
		errs[k] = v
	}
	return MetricStats{
		SensorReadsTotal:   reads,
		SensorErrorsTotal:  errs,
		MQTTPublishesTotal: pm.mqttPublishesTotal,
		MQTTErrorsTotal:    pm.mqttErrorsTotal,
		InboundTotal:       pm.inboundTotal,
		DroppedTotal:       pm.droppedTotal,
		OverridesTotal:     pm.overridesTotal,
		LinkOnline:         pm.linkStatus == 1,
		AvgCycleDuration:   avg,
		CycleCount:         pm.cycleDurationCount,
	}
}
