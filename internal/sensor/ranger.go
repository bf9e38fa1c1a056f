package sensor

import (
	"time"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/logger"
)

// SpeedOfSoundCmPerUs is the speed of sound in air at ~20°C
const SpeedOfSoundCmPerUs = 0.0343

// Ranger timing defaults
const (
	DefaultTriggerPulse = 10 * time.Microsecond
	DefaultEchoTimeout  = 30 * time.Millisecond
	triggerSettle       = 2 * time.Microsecond
)

// DistanceRanger drives a trigger/echo ultrasonic ranger
type DistanceRanger struct {
	trigger      OutputPin
	echo         InputPin
	clock        Clock
	triggerPulse time.Duration
	timeout      time.Duration
}

// NewDistanceRanger creates a ranger. Zero durations select the defaults.
func NewDistanceRanger(trigger OutputPin, echo InputPin, clock Clock, triggerPulse, timeout time.Duration) *DistanceRanger {
	if triggerPulse <= 0 {
		triggerPulse = DefaultTriggerPulse
	}
	if timeout <= 0 {
		timeout = DefaultEchoTimeout
	}
	return &DistanceRanger{
		trigger:      trigger,
		echo:         echo,
		clock:        clock,
		triggerPulse: triggerPulse,
		timeout:      timeout,
	}
}

// MeasureDistance fires one ping and returns the range in centimeters,
// or nil when either echo edge does not arrive within the timeout
func (r *DistanceRanger) MeasureDistance() *float64 {
	echo, err := r.Ping()
	if err != nil {
		logger.LogDebug("📏 Distance measurement failed: %v", err)
		return nil
	}
	d := DistanceFromEcho(echo)
	return &d
}

// Ping emits the trigger pulse and times the echo. Errors are
// *errors.SensorTimeoutError for missing edges and *errors.SensorReadError
// when the trigger line cannot be driven.
func (r *DistanceRanger) Ping() (time.Duration, error) {
	if err := r.pulseTrigger(); err != nil {
		return 0, perrors.NewSensorReadError("trigger", err, "distance")
	}

	rise, ok := waitForLevel(r.echo, r.clock, true, r.timeout)
	if !ok {
		return 0, perrors.NewSensorTimeoutError("wait_echo_rise", "distance", r.timeout)
	}
	fall, ok := waitForLevel(r.echo, r.clock, false, r.timeout)
	if !ok {
		return 0, perrors.NewSensorTimeoutError("wait_echo_fall", "distance", r.timeout)
	}
	return fall - rise, nil
}

func (r *DistanceRanger) pulseTrigger() error {
	if err := r.trigger.Out(false); err != nil {
		return err
	}
	r.clock.Sleep(triggerSettle)
	if err := r.trigger.Out(true); err != nil {
		return err
	}
	r.clock.Sleep(r.triggerPulse)
	return r.trigger.Out(false)
}

// DistanceFromEcho converts an echo pulse width to centimeters, rounded to
// one decimal. The pulse covers the round trip, hence the halving.
func DistanceFromEcho(echo time.Duration) float64 {
	us := float64(echo) / float64(time.Microsecond)
	return Round1(us * SpeedOfSoundCmPerUs / 2)
}
