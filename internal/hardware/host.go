// Package hardware binds the sensor and display seams to real devices
// through periph.io.
package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"pico-monitor/internal/logger"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// Init loads the periph host drivers. Safe to call more than once.
func Init() error {
	hostOnce.Do(func() {
		state, err := host.Init()
		if err != nil {
			hostErr = fmt.Errorf("periph host init: %w", err)
			return
		}
		for _, d := range state.Loaded {
			logger.LogDebug("🔌 Loaded driver: %s", d)
		}
		for _, f := range state.Failed {
			logger.LogDebug("🔌 Driver failed: %s", f)
		}
	})
	return hostErr
}

// buses shares one open handle per I²C bus name between devices
type buses struct {
	mu     sync.Mutex
	opened map[string]i2c.BusCloser
}

func newBuses() *buses {
	return &buses{opened: make(map[string]i2c.BusCloser)}
}

func (b *buses) open(name string) (i2c.Bus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bus, ok := b.opened[name]; ok {
		return bus, nil
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	b.opened[name] = bus
	return bus, nil
}

func (b *buses) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for name, bus := range b.opened {
		if err := bus.Close(); err != nil && first == nil {
			first = fmt.Errorf("close i2c bus %q: %w", name, err)
		}
		delete(b.opened, name)
	}
	return first
}
