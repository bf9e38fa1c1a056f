package metrics

import "time"

// NullMetrics is a no-op implementation of MetricsCollector used when
// the HTTP listener is disabled (http.port = 0).
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

func (nm *NullMetrics) IncrementSensorReads(sensor string)          {}
func (nm *NullMetrics) IncrementSensorErrors(sensor string)         {}
func (nm *NullMetrics) IncrementMQTTPublishes()                     {}
func (nm *NullMetrics) IncrementMQTTErrors()                        {}
func (nm *NullMetrics) IncrementInboundMessages()                   {}
func (nm *NullMetrics) IncrementDroppedMessages()                   {}
func (nm *NullMetrics) IncrementOverrides()                         {}
func (nm *NullMetrics) SetLinkStatus(online bool)                   {}
func (nm *NullMetrics) ObserveCycleDuration(duration time.Duration) {}
func (nm *NullMetrics) RecordError(code int)                        {}

// Compile-time verification that NullMetrics implements MetricsCollector
var _ MetricsCollector = (*NullMetrics)(nil)
