package sensor

import (
	"fmt"
	"time"

	perrors "pico-monitor/internal/errors"
)

const (
	frameBits       = 40
	responseTimeout = 100 * time.Microsecond
	bitTimeout      = 100 * time.Microsecond

	// A high pulse longer than this encodes a 1 (26-28µs is 0, ~70µs is 1)
	oneBitThreshold = 50 * time.Microsecond
)

// GPIOClimateTransport bit-bangs the DHT single-wire protocol on one pin
type GPIOClimateTransport struct {
	pin   BidiPin
	clock Clock
	model Model
}

// NewGPIOClimateTransport creates a transport for the given model
func NewGPIOClimateTransport(pin BidiPin, clock Clock, model Model) *GPIOClimateTransport {
	return &GPIOClimateTransport{pin: pin, clock: clock, model: model}
}

// ReadFrame sends the start signal and decodes the 40-bit reply.
// A silent line yields ErrDeviceNotReady; a reply that stalls mid-frame
// yields ErrLineContention.
func (t *GPIOClimateTransport) ReadFrame() (Frame, error) {
	if err := t.pin.Out(false); err != nil {
		return Frame{}, fmt.Errorf("drive start signal: %w", err)
	}
	t.clock.Sleep(t.model.startSignal())
	if err := t.pin.Release(); err != nil {
		return Frame{}, fmt.Errorf("release line: %w", err)
	}

	// 80µs low then 80µs high acknowledge the start signal
	if _, ok := waitForLevel(t.pin, t.clock, false, responseTimeout); !ok {
		return Frame{}, perrors.ErrDeviceNotReady
	}
	if _, ok := waitForLevel(t.pin, t.clock, true, responseTimeout); !ok {
		return Frame{}, fmt.Errorf("%w: acknowledge low", perrors.ErrLineContention)
	}
	if _, ok := waitForLevel(t.pin, t.clock, false, responseTimeout); !ok {
		return Frame{}, fmt.Errorf("%w: acknowledge high", perrors.ErrLineContention)
	}

	widths := make([]time.Duration, 0, frameBits)
	for i := 0; i < frameBits; i++ {
		rise, ok := waitForLevel(t.pin, t.clock, true, bitTimeout)
		if !ok {
			return Frame{}, fmt.Errorf("%w: bit %d start", perrors.ErrLineContention, i)
		}
		fall, ok := waitForLevel(t.pin, t.clock, false, bitTimeout)
		if !ok {
			return Frame{}, fmt.Errorf("%w: bit %d end", perrors.ErrLineContention, i)
		}
		widths = append(widths, fall-rise)
	}
	return DecodePulses(widths), nil
}

// DecodePulses packs high-pulse widths MSB first into a frame. Missing
// trailing pulses decode as zero bits.
func DecodePulses(widths []time.Duration) Frame {
	var f Frame
	for i, w := range widths {
		if i >= frameBits {
			break
		}
		if w > oneBitThreshold {
			f[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return f
}
