package sensor

import (
	"fmt"
	"strings"
	"time"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/logger"
)

// Model selects the single-wire climate sensor variant
type Model string

const (
	ModelDHT11 Model = "dht11"
	ModelDHT22 Model = "dht22"
)

// ParseModel accepts "dht11" or "dht22" in any case
func ParseModel(s string) (Model, error) {
	switch m := Model(strings.ToLower(strings.TrimSpace(s))); m {
	case ModelDHT11, ModelDHT22:
		return m, nil
	default:
		return "", fmt.Errorf("unknown climate sensor model %q", s)
	}
}

// MinReadInterval is the shortest gap the device tolerates between reads
func (m Model) MinReadInterval() time.Duration {
	if m == ModelDHT11 {
		return time.Second
	}
	return 2 * time.Second
}

// startSignal is how long the host holds the line low to wake the device
func (m Model) startSignal() time.Duration {
	if m == ModelDHT11 {
		return 18 * time.Millisecond
	}
	return 1100 * time.Microsecond
}

// Frame is the 40-bit reply: two humidity bytes, two temperature bytes
// and a checksum
type Frame [5]byte

// Checksum is the low byte of the sum of the four data bytes
func (f Frame) Checksum() byte {
	return byte((int(f[0]) + int(f[1]) + int(f[2]) + int(f[3])) & 0xFF)
}

// Valid reports whether the trailing byte matches the data checksum
func (f Frame) Valid() bool {
	return f.Checksum() == f[4]
}

// Decode converts a frame to degrees Celsius and percent humidity
func (m Model) Decode(f Frame) (temperature, humidity float64) {
	if m == ModelDHT11 {
		humidity = float64(f[0]) + float64(f[1])/10
		temperature = float64(f[2]) + float64(f[3]&0x7F)/10
		if f[3]&0x80 != 0 {
			temperature = -temperature
		}
		return temperature, humidity
	}

	humidity = float64(uint16(f[0])<<8|uint16(f[1])) / 10
	temperature = float64(uint16(f[2]&0x7F)<<8|uint16(f[3])) / 10
	if f[2]&0x80 != 0 {
		temperature = -temperature
	}
	return temperature, humidity
}

// ClimateTransport performs one wake/reply exchange with the device
type ClimateTransport interface {
	ReadFrame() (Frame, error)
}

// ClimateSensor reads temperature and humidity from a DHT-family device
type ClimateSensor struct {
	transport   ClimateTransport
	model       Model
	clock       Clock
	minInterval time.Duration
	lastAttempt time.Duration
	attempted   bool
	log         logger.ILogger
}

// NewClimateSensor creates a climate sensor. A nil log uses the global logger.
func NewClimateSensor(transport ClimateTransport, model Model, clock Clock, log logger.ILogger) *ClimateSensor {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &ClimateSensor{
		transport:   transport,
		model:       model,
		clock:       clock,
		minInterval: model.MinReadInterval(),
		log:         log,
	}
}

// Measure triggers one read. Both values are nil when the read fails for
// any reason; a warning carrying the cause is logged.
func (c *ClimateSensor) Measure() (temperature, humidity *float64) {
	t, h, err := c.Read()
	if err != nil {
		c.log.LogWarn("🌡️ Climate sensor read failed: %v", err)
		return nil, nil
	}
	return Reading(t), Reading(h)
}

// Read returns the raw decoded values or a *errors.SensorReadError wrapping
// one of the transport sentinels
func (c *ClimateSensor) Read() (temperature, humidity float64, err error) {
	now := c.clock.Now()
	if c.attempted && now-c.lastAttempt < c.minInterval {
		return 0, 0, perrors.NewSensorReadError("measure",
			fmt.Errorf("%w: %v since last read", perrors.ErrDeviceNotReady, now-c.lastAttempt), c.name())
	}
	c.lastAttempt = now
	c.attempted = true

	frame, err := c.transport.ReadFrame()
	if err != nil {
		return 0, 0, perrors.NewSensorReadError("read_frame", err, c.name())
	}
	if !frame.Valid() {
		return 0, 0, perrors.NewSensorReadError("verify",
			fmt.Errorf("%w: got 0x%02X, want 0x%02X", perrors.ErrChecksumMismatch, frame[4], frame.Checksum()), c.name())
	}

	temperature, humidity = c.model.Decode(frame)
	return temperature, humidity, nil
}

func (c *ClimateSensor) name() string {
	return string(c.model)
}
