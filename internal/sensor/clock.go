package sensor

import "time"

// Clock is the monotonic time source used by the pulse-timing sensors.
// Now returns the elapsed time since an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// spinThreshold is the longest sleep SystemClock busy-waits instead of
// handing control to the scheduler
const spinThreshold = time.Millisecond

// SystemClock is a Clock backed by the runtime monotonic clock
type SystemClock struct {
	origin time.Time
}

// NewSystemClock creates a clock whose origin is now
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// Now returns the monotonic time elapsed since the clock was created
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.origin)
}

// Sleep pauses for d. Microsecond pulses are spun because the scheduler
// cannot honour them.
func (c *SystemClock) Sleep(d time.Duration) {
	if d >= spinThreshold {
		time.Sleep(d)
		return
	}
	deadline := c.Now() + d
	for c.Now() < deadline {
	}
}

// OutputPin is a digital line the sensor drives
type OutputPin interface {
	Out(high bool) error
}

// InputPin is a digital line the sensor samples
type InputPin interface {
	Read() bool
}

// BidiPin is a single-wire line that is driven, then released to input
// with a pull-up so the device can answer
type BidiPin interface {
	OutputPin
	InputPin
	Release() error
}

// waitForLevel busy-waits until pin reads level, returning the timestamp at
// which the level was observed. ok is false when timeout elapses first.
func waitForLevel(pin InputPin, clock Clock, level bool, timeout time.Duration) (at time.Duration, ok bool) {
	start := clock.Now()
	for pin.Read() != level {
		if clock.Now()-start > timeout {
			return 0, false
		}
	}
	return clock.Now(), true
}
