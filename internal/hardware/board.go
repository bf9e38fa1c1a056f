package hardware

import (
	"errors"
	"fmt"
	"io"

	"pico-monitor/internal/logger"
)

// Wiring names the pins and bus addresses a Board opens
type Wiring struct {
	TriggerPin   string
	EchoPin      string
	ClimatePin   string
	LightBus     string
	LightAddress uint16
	LightChannel int
}

// Board owns every opened pin and bus and releases them together
type Board struct {
	buses   *buses
	closers []namedCloser

	Trigger *OutputPin
	Echo    *InputPin
	Climate *BidiPin
	Light   *ADS1115
}

type namedCloser struct {
	name string
	c    io.Closer
}

// OpenBoard initialises the host and opens the sensor pins. On error every
// resource opened so far is released.
func OpenBoard(w Wiring) (b *Board, err error) {
	if err := Init(); err != nil {
		return nil, err
	}
	b = &Board{buses: newBuses()}
	defer func() {
		if err != nil {
			_ = b.Close()
			b = nil
		}
	}()

	if b.Trigger, err = OpenOutput(w.TriggerPin); err != nil {
		return nil, err
	}
	b.track("trigger "+w.TriggerPin, b.Trigger)

	if b.Echo, err = OpenInput(w.EchoPin); err != nil {
		return nil, err
	}
	b.track("echo "+w.EchoPin, b.Echo)

	if b.Climate, err = OpenBidi(w.ClimatePin); err != nil {
		return nil, err
	}
	b.track("climate "+w.ClimatePin, b.Climate)

	bus, err := b.buses.open(w.LightBus)
	if err != nil {
		return nil, err
	}
	if b.Light, err = NewADS1115(bus, w.LightAddress, w.LightChannel); err != nil {
		return nil, err
	}

	logger.LogInfo("🔌 Board ready: trigger=%s echo=%s climate=%s adc=0x%02X/%d",
		w.TriggerPin, w.EchoPin, w.ClimatePin, w.LightAddress, w.LightChannel)
	return b, nil
}

// OpenHost initialises the host without opening any sensor pins, for a
// panel next to simulated sensors
func OpenHost() (*Board, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &Board{buses: newBuses()}, nil
}

// OpenOLED opens the panel on the named bus, sharing it with the ADC when
// both sit on the same bus
func (b *Board) OpenOLED(busName string) (*OLEDScreen, error) {
	bus, err := b.buses.open(busName)
	if err != nil {
		return nil, err
	}
	screen, err := NewOLEDScreen(bus)
	if err != nil {
		return nil, err
	}
	b.track("oled", screen)
	return screen, nil
}

func (b *Board) track(name string, c io.Closer) {
	b.closers = append(b.closers, namedCloser{name: name, c: c})
}

// Close releases resources in reverse order of opening, buses last
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		nc := b.closers[i]
		if err := nc.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", nc.name, err))
		}
	}
	b.closers = nil
	if err := b.buses.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
