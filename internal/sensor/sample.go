// Package sensor implements the three physical sensors sampled every cycle
// and the per-cycle Sample they produce.
//
// Every reading is optional except light: a nil pointer means the sensor
// failed or timed out this cycle. Absence is never reported as zero.
package sensor

import (
	"math"
	"strconv"
	"time"
)

// AbsentValue is the telemetry payload published for a missing reading
const AbsentValue = "None"

// Sample is one cycle's readings. It is built fresh every cycle and
// discarded after render and publish.
type Sample struct {
	Distance     *float64 // centimeters
	Temperature  *float64 // degrees Celsius
	Humidity     *float64 // percent relative humidity
	LightPercent float64  // 0-100
	TakenAt      time.Time
}

// Round1 rounds v to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Reading returns a pointer to v rounded to one decimal place
func Reading(v float64) *float64 {
	r := Round1(v)
	return &r
}

// FormatValue renders an optional reading with one decimal, or AbsentValue
func FormatValue(v *float64) string {
	if v == nil {
		return AbsentValue
	}
	return FormatFloat(*v)
}

// FormatFloat renders v with exactly one decimal
func FormatFloat(v float64) string {
	return strconv.FormatFloat(Round1(v), 'f', 1, 64)
}

// DistanceMeter is satisfied by DistanceRanger
type DistanceMeter interface {
	MeasureDistance() *float64
}

// ClimateMeter is satisfied by ClimateSensor
type ClimateMeter interface {
	Measure() (temperature, humidity *float64)
}

// LightMeter is satisfied by LightSensor
type LightMeter interface {
	ReadLightPercent() float64
}

// Sampler takes one Sample from the three sensors. Each sensor is read
// independently so one failure never invalidates another reading.
type Sampler struct {
	distance DistanceMeter
	climate  ClimateMeter
	light    LightMeter
	now      func() time.Time
}

// NewSampler creates a sampler over the given sensors
func NewSampler(distance DistanceMeter, climate ClimateMeter, light LightMeter) *Sampler {
	return &Sampler{
		distance: distance,
		climate:  climate,
		light:    light,
		now:      time.Now,
	}
}

// Take reads every sensor once, in climate, distance, light order
func (s *Sampler) Take() Sample {
	temperature, humidity := s.climate.Measure()
	return Sample{
		Distance:     s.distance.MeasureDistance(),
		Temperature:  temperature,
		Humidity:     humidity,
		LightPercent: Round1(s.light.ReadLightPercent()),
		TakenAt:      s.now(),
	}
}
