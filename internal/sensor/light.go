package sensor

import "math"

// FullScale is the maximum raw value of a 16-bit analogue read
const FullScale = 65535

// ADC is a 16-bit analogue channel
type ADC interface {
	ReadU16() uint16
}

// LightSensor converts a photoresistor voltage divider reading to percent
type LightSensor struct {
	adc    ADC
	maxRaw uint16
}

// NewLightSensor creates a light sensor. maxRaw is the raw value treated as
// 100%; zero selects FullScale.
func NewLightSensor(adc ADC, maxRaw uint16) *LightSensor {
	if maxRaw == 0 {
		maxRaw = FullScale
	}
	return &LightSensor{adc: adc, maxRaw: maxRaw}
}

// ReadLightPercent is always available; it never fails
func (l *LightSensor) ReadLightPercent() float64 {
	return LightPercent(l.adc.ReadU16(), l.maxRaw)
}

// LightPercent scales raw against maxRaw to [0, 100], one decimal
func LightPercent(raw, maxRaw uint16) float64 {
	if maxRaw == 0 {
		return 0
	}
	p := float64(raw) / float64(maxRaw) * 100
	return Round1(math.Max(0, math.Min(100, p)))
}
