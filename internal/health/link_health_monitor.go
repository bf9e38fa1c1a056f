package health

import (
	"sync"
	"time"

	"pico-monitor/internal/logger"
	"pico-monitor/internal/recovery"
)

// Health states reported by Status
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusOffline  = "offline"
)

// Status is the JSON body of the /health endpoint
type Status struct {
	Status            string    `json:"status"`
	Mode              string    `json:"mode"`
	LinkOnline        bool      `json:"link_online"`
	SensorOnly        bool      `json:"sensor_only"`
	ConsecutiveErrors int       `json:"consecutive_publish_errors"`
	LastError         string    `json:"last_error,omitempty"`
	LastCycle         time.Time `json:"last_cycle"`
	Cycles            uint64    `json:"cycles"`
	Uptime            string    `json:"uptime"`
}

// LinkHealthMonitor tracks the broker link and publish outcomes. Publish
// failures within the grace period leave the node healthy.
type LinkHealthMonitor struct {
	linkOnline   bool
	sensorOnly   bool
	publishOK    bool
	lastError    string
	mode         string
	lastCycle    time.Time
	cycles       uint64
	started      time.Time
	errorManager *recovery.ErrorRecoveryManager
	mu           sync.RWMutex
}

// NewLinkHealthMonitor creates a new link health monitor
func NewLinkHealthMonitor(gracePeriod time.Duration) *LinkHealthMonitor {
	return &LinkHealthMonitor{
		publishOK:    true,
		mode:         "attaching",
		started:      time.Now(),
		errorManager: recovery.NewErrorRecoveryManager(gracePeriod),
	}
}

// SetLinkOnline records the broker connection state
func (m *LinkHealthMonitor) SetLinkOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkOnline = online
}

// SetSensorOnly marks the node as running without a broker link
func (m *LinkHealthMonitor) SetSensorOnly() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensorOnly = true
	m.linkOnline = false
}

// RecordSuccess records a cycle whose publishes all succeeded
func (m *LinkHealthMonitor) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.publishOK {
		logger.LogInfo("✅ Telemetry publishing recovered")
	}
	m.errorManager.RecordSuccess()
	m.publishOK = true
}

// RecordError records a publish failure and reports whether the streak
// just outlived the grace period
func (m *LinkHealthMonitor) RecordError(err error) (markedDegraded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.lastError = err.Error()
	}
	m.errorManager.RecordError()
	if !m.errorManager.ShouldMarkOffline() {
		return false
	}
	m.errorManager.MarkAsOffline()
	m.publishOK = false
	logger.LogWarn("⚠️ Telemetry publishing failing for %v (%d consecutive errors)",
		m.errorManager.GetTimeSinceFirstError().Round(time.Second), m.errorManager.GetConsecutiveErrors())
	return true
}

// RecordCycle notes a completed loop iteration in mode
func (m *LinkHealthMonitor) RecordCycle(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	m.lastCycle = time.Now()
	m.cycles++
}

// IsHealthy reports whether Status would return StatusOK
func (m *LinkHealthMonitor) IsHealthy() bool {
	return m.Status().Status == StatusOK
}

// Status returns a snapshot of the node health
func (m *LinkHealthMonitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := StatusOK
	switch {
	case m.sensorOnly || !m.linkOnline:
		state = StatusOffline
	case !m.publishOK:
		state = StatusDegraded
	}
	return Status{
		Status:            state,
		Mode:              m.mode,
		LinkOnline:        m.linkOnline,
		SensorOnly:        m.sensorOnly,
		ConsecutiveErrors: m.errorManager.GetConsecutiveErrors(),
		LastError:         m.lastError,
		LastCycle:         m.lastCycle,
		Cycles:            m.cycles,
		Uptime:            time.Since(m.started).Round(time.Second).String(),
	}
}
