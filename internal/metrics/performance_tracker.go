package metrics

import (
	"sync"
	"time"

	"pico-monitor/internal/logger"
)

// PerformanceTracker accumulates per-cycle outcomes between periodic
// summary log lines
type PerformanceTracker struct {
	cycles          int
	completeCycles  int
	absentReadings  int
	publishFailures int
	lastSummaryTime time.Time
	summaryInterval time.Duration
	now             func() time.Time
	mu              sync.Mutex
}

// PerformanceStats represents performance statistics since the last summary
type PerformanceStats struct {
	Cycles          int
	CompleteCycles  int
	AbsentReadings  int
	PublishFailures int
	CompleteRate    float64
}

// NewPerformanceTracker creates a new performance tracker
func NewPerformanceTracker(summaryInterval time.Duration) *PerformanceTracker {
	return &PerformanceTracker{
		lastSummaryTime: time.Now(),
		summaryInterval: summaryInterval,
		now:             time.Now,
	}
}

// RecordCycle records one sensor cycle. absent is the number of readings
// reported as absent, failedPublishes the number of publishes that failed.
func (pt *PerformanceTracker) RecordCycle(absent, failedPublishes int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.cycles++
	if absent == 0 {
		pt.completeCycles++
	}
	pt.absentReadings += absent
	pt.publishFailures += failedPublishes
}

// GetStats returns current performance statistics
func (pt *PerformanceTracker) GetStats() PerformanceStats {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.statsLocked()
}

func (pt *PerformanceTracker) statsLocked() PerformanceStats {
	var rate float64
	if pt.cycles > 0 {
		rate = float64(pt.completeCycles) / float64(pt.cycles) * 100.0
	}
	return PerformanceStats{
		Cycles:          pt.cycles,
		CompleteCycles:  pt.completeCycles,
		AbsentReadings:  pt.absentReadings,
		PublishFailures: pt.publishFailures,
		CompleteRate:    rate,
	}
}

// PrintSummaryIfNeeded logs and resets the counters once the summary
// interval has elapsed. It reports whether a summary was printed.
func (pt *PerformanceTracker) PrintSummaryIfNeeded() bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.summaryInterval <= 0 || pt.now().Sub(pt.lastSummaryTime) < pt.summaryInterval {
		return false
	}

	stats := pt.statsLocked()
	logger.LogInfo("📊 Summary - Cycles: %d, Complete: %.0f%%, Absent readings: %d, Publish failures: %d, Last %v",
		stats.Cycles, stats.CompleteRate, stats.AbsentReadings, stats.PublishFailures, pt.summaryInterval)

	pt.lastSummaryTime = pt.now()
	pt.cycles = 0
	pt.completeCycles = 0
	pt.absentReadings = 0
	pt.publishFailures = 0
	return true
}
