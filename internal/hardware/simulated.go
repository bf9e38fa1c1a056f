package hardware

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Simulated stands in for all three sensors on hosts without wiring.
// Readings drift slowly and every tenth ping times out.
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	pings       int
	distance    float64
	temperature float64
	humidity    float64
	light       float64
}

// NewSimulated seeds a simulated sensor set
func NewSimulated(seed int64) *Simulated {
	return &Simulated{
		rng:         rand.New(rand.NewSource(seed)),
		distance:    40,
		temperature: 22,
		humidity:    45,
		light:       50,
	}
}

// NewSimulatedNow seeds from the wall clock
func NewSimulatedNow() *Simulated {
	return NewSimulated(time.Now().UnixNano())
}

func (s *Simulated) MeasureDistance() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings++
	if s.pings%10 == 0 {
		return nil
	}
	s.distance = s.drift(s.distance, 1.5, 2, 400)
	v := math.Round(s.distance*10) / 10
	return &v
}

func (s *Simulated) Measure() (temperature, humidity *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = s.drift(s.temperature, 0.2, -10, 50)
	s.humidity = s.drift(s.humidity, 0.5, 5, 95)
	t := math.Round(s.temperature*10) / 10
	h := math.Round(s.humidity*10) / 10
	return &t, &h
}

func (s *Simulated) ReadLightPercent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.light = s.drift(s.light, 2, 0, 100)
	return math.Round(s.light*10) / 10
}

func (s *Simulated) drift(v, step, lo, hi float64) float64 {
	v += (s.rng.Float64()*2 - 1) * step
	return math.Max(lo, math.Min(hi, v))
}
