package health

import (
	"errors"
	"testing"
	"time"
)

func TestLinkHealthTransitions(t *testing.T) {
	m := NewLinkHealthMonitor(20 * time.Millisecond)

	if got := m.Status().Status; got != StatusOffline {
		t.Errorf("Expected offline before the link is up, got %s", got)
	}

	m.SetLinkOnline(true)
	m.RecordCycle("sensor_view")
	if !m.IsHealthy() {
		t.Errorf("Expected healthy, got %+v", m.Status())
	}

	if m.RecordError(errors.New("publish timeout")) {
		t.Error("First error must stay within the grace period")
	}
	if !m.IsHealthy() {
		t.Error("Errors within grace period keep the node healthy")
	}

	time.Sleep(30 * time.Millisecond)
	if !m.RecordError(errors.New("publish timeout")) {
		t.Error("Expected degraded after the grace period")
	}
	if m.RecordError(errors.New("publish timeout")) {
		t.Error("Degradation is reported once per streak")
	}

	status := m.Status()
	if status.Status != StatusDegraded || status.ConsecutiveErrors != 3 || status.LastError != "publish timeout" {
		t.Errorf("Unexpected status %+v", status)
	}

	m.RecordSuccess()
	if !m.IsHealthy() {
		t.Error("Expected recovery after a successful cycle")
	}
	if m.Status().Cycles != 1 || m.Status().Mode != "sensor_view" {
		t.Errorf("Unexpected cycle bookkeeping %+v", m.Status())
	}
	t.Log("✅ Link health follows publish outcomes with a grace period")
}

func TestSensorOnlyIsOffline(t *testing.T) {
	m := NewLinkHealthMonitor(time.Second)
	m.SetLinkOnline(true)
	m.SetSensorOnly()

	status := m.Status()
	if status.Status != StatusOffline || !status.SensorOnly || status.LinkOnline {
		t.Errorf("Unexpected status %+v", status)
	}
}
