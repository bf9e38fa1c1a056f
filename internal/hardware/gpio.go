package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

func lookupPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return p, nil
}

// OutputPin drives a GPIO line
type OutputPin struct {
	pin gpio.PinIO
}

// OpenOutput configures name as an output, initially low
func OpenOutput(name string) (*OutputPin, error) {
	p, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", name, err)
	}
	return &OutputPin{pin: p}, nil
}

func (o *OutputPin) Out(high bool) error {
	return o.pin.Out(level(high))
}

// Close drives the line low and releases it
func (o *OutputPin) Close() error {
	if err := o.pin.Out(gpio.Low); err != nil {
		return err
	}
	return o.pin.Halt()
}

// InputPin samples a GPIO line
type InputPin struct {
	pin gpio.PinIO
}

// OpenInput configures name as an input with a pull-down
func OpenInput(name string) (*InputPin, error) {
	p, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", name, err)
	}
	return &InputPin{pin: p}, nil
}

func (i *InputPin) Read() bool {
	return i.pin.Read() == gpio.High
}

func (i *InputPin) Close() error {
	return i.pin.Halt()
}

// BidiPin is a single-wire data line with a pull-up
type BidiPin struct {
	pin gpio.PinIO
}

// OpenBidi configures name as a released, pulled-up input
func OpenBidi(name string) (*BidiPin, error) {
	p, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	b := &BidiPin{pin: p}
	if err := b.Release(); err != nil {
		return nil, fmt.Errorf("configure %s as single-wire line: %w", name, err)
	}
	return b, nil
}

func (b *BidiPin) Out(high bool) error {
	return b.pin.Out(level(high))
}

// Release stops driving the line so the device can pull it low
func (b *BidiPin) Release() error {
	return b.pin.In(gpio.PullUp, gpio.NoEdge)
}

func (b *BidiPin) Read() bool {
	return b.pin.Read() == gpio.High
}

func (b *BidiPin) Close() error {
	if err := b.Release(); err != nil {
		return err
	}
	return b.pin.Halt()
}

func level(high bool) gpio.Level {
	if high {
		return gpio.High
	}
	return gpio.Low
}
