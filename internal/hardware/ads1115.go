package hardware

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"pico-monitor/internal/logger"
)

// ADS1115 registers and single-shot configuration
const (
	adsRegConversion = 0x00
	adsRegConfig     = 0x01

	adsStartSingle = 1 << 15
	adsMuxSingle0  = 0x4 << 12 // AINx against GND, channel added on top
	adsPGA4096     = 0x1 << 9
	adsModeSingle  = 1 << 8
	adsRate128     = 0x4 << 5
	adsCompDisable = 0x3

	adsConversionTime = 9 * time.Millisecond
)

// ADS1115 reads one single-ended channel of a TI ADS1115 and scales it to
// the 16-bit unsigned range. A failed read repeats the last good value.
type ADS1115 struct {
	mu       sync.Mutex
	dev      *i2c.Dev
	channel  int
	last     uint16
	failures int
	sleep    func(time.Duration)
}

// NewADS1115 binds channel (0-3) of the converter at addr on bus
func NewADS1115(bus i2c.Bus, addr uint16, channel int) (*ADS1115, error) {
	if channel < 0 || channel > 3 {
		return nil, fmt.Errorf("ads1115 channel %d out of range", channel)
	}
	return &ADS1115{
		dev:     &i2c.Dev{Bus: bus, Addr: addr},
		channel: channel,
		sleep:   time.Sleep,
	}, nil
}

// ReadU16 never fails. Negative conversions clamp to zero and positive ones
// are doubled so full scale maps to 65534.
func (a *ADS1115) ReadU16() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := a.convert()
	if err != nil {
		a.failures++
		logger.LogWarn("💡 ADC read failed (%d consecutive), holding %d: %v", a.failures, a.last, err)
		return a.last
	}
	a.failures = 0
	if raw < 0 {
		raw = 0
	}
	a.last = uint16(raw) << 1
	return a.last
}

func (a *ADS1115) convert() (int16, error) {
	cfg := uint16(adsStartSingle | adsMuxSingle0 | a.channel<<12 | adsPGA4096 | adsModeSingle | adsRate128 | adsCompDisable)
	w := []byte{adsRegConfig, byte(cfg >> 8), byte(cfg)}
	if err := a.dev.Tx(w, nil); err != nil {
		return 0, fmt.Errorf("start conversion: %w", err)
	}
	a.sleep(adsConversionTime)

	r := make([]byte, 2)
	if err := a.dev.Tx([]byte{adsRegConversion}, r); err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}
	return int16(binary.BigEndian.Uint16(r)), nil
}
