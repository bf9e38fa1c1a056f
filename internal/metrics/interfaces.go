package metrics

import "time"

// Sensor labels used by the collectors
const (
	SensorDistance = "distance"
	SensorClimate  = "climate"
	SensorLight    = "light"
)

// MetricsCollector defines the interface for collecting node metrics.
//
// Implementations:
//   - PrometheusMetrics: text exposition served on /metrics
//   - NullMetrics: no-op implementation when the HTTP listener is disabled
type MetricsCollector interface {
	// IncrementSensorReads counts a reading that produced a value
	IncrementSensorReads(sensor string)

	// IncrementSensorErrors counts a reading reported as absent
	IncrementSensorErrors(sensor string)

	// IncrementMQTTPublishes counts a telemetry publish handed to the broker
	IncrementMQTTPublishes()

	// IncrementMQTTErrors counts a publish that failed locally
	IncrementMQTTErrors()

	// IncrementInboundMessages counts a command message accepted into the queue
	IncrementInboundMessages()

	// IncrementDroppedMessages counts a command message discarded because
	// the queue was full
	IncrementDroppedMessages()

	// IncrementOverrides counts entries into the message override view
	IncrementOverrides()

	// SetLinkStatus sets the broker connection status
	SetLinkStatus(online bool)

	// ObserveCycleDuration records the time spent in one loop iteration,
	// excluding the inter-cycle sleep
	ObserveCycleDuration(duration time.Duration)

	// RecordError counts an error by diagnostic code
	RecordError(code int)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector
var _ MetricsCollector = (*PrometheusMetrics)(nil)
