package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pico-monitor/internal/display"
	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/health"
	"pico-monitor/internal/logger"
	"pico-monitor/internal/metrics"
	"pico-monitor/internal/mqtt"
	"pico-monitor/internal/recovery"
	"pico-monitor/internal/sensor"
)

// Link is the broker session the loop publishes through
type Link interface {
	Subscribe(topic string) error
	RegisterHandler(filter string, h mqtt.Handler)
	Publish(topic, value string) error
	PollIncoming() int
	IsConnected() bool
	Disconnect()
}

// Connector opens a broker session. It is retried by the loop.
type Connector func(ctx context.Context) (Link, error)

// SampleSource takes one reading of every sensor
type SampleSource interface {
	Take() sensor.Sample
}

// Frame draws display states
type Frame interface {
	Render(state display.State, sample sensor.Sample) error
	Blank() error
}

// Options holds the loop timing and link policy
type Options struct {
	Period      time.Duration
	SettleDelay time.Duration
	HoldTicks   int
	Backoff     recovery.BackoffConfig
	// SensorOnlyOnFailure keeps the loop running without a broker when
	// attach or connect exhaust their retries
	SensorOnlyOnFailure bool
	SSID                string
	Topics              mqtt.Topics
}

// Dependencies are the collaborators of a Loop. Metrics, Health, Tracker
// and Errors are optional.
type Dependencies struct {
	Network mqtt.Network
	Connect Connector
	Sensors SampleSource
	Display Frame
	Metrics metrics.MetricsCollector
	Health  *health.LinkHealthMonitor
	Tracker *metrics.PerformanceTracker
	Errors  *perrors.ErrorHandler
	// Closers are released in reverse order when Run returns
	Closers []io.Closer
}

// Loop is the single control flow of the node
type Loop struct {
	opts    Options
	network mqtt.Network
	connect Connector
	sensors SampleSource
	display Frame
	metrics metrics.MetricsCollector
	health  *health.LinkHealthMonitor
	tracker *metrics.PerformanceTracker
	errs    *perrors.ErrorHandler
	closers []io.Closer

	link  Link
	view  View
	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

// NewLoop creates a loop in the attaching phase
func NewLoop(opts Options, deps Dependencies) *Loop {
	if opts.HoldTicks <= 0 {
		opts.HoldTicks = DefaultHoldTicks
	}
	if deps.Network == nil {
		deps.Network = mqtt.NoNetwork{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNullMetrics()
	}
	if deps.Health == nil {
		deps.Health = health.NewLinkHealthMonitor(30 * time.Second)
	}
	if deps.Errors == nil {
		deps.Errors = perrors.NewErrorHandler(deps.Metrics, nil)
	}
	return &Loop{
		opts:    opts,
		network: deps.Network,
		connect: deps.Connect,
		sensors: deps.Sensors,
		display: deps.Display,
		metrics: deps.Metrics,
		health:  deps.Health,
		tracker: deps.Tracker,
		errs:    deps.Errors,
		closers: deps.Closers,
		view:    SensorView(),
		sleep:   recovery.SleepCtx,
		now:     time.Now,
	}
}

// View returns the current display state and countdown
func (l *Loop) View() View {
	return l.view
}

// Run attaches the link and iterates until ctx is cancelled. It returns
// nil on cancellation and an error only when the link could not be
// established and sensor-only operation is not allowed.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	if err := l.Attach(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	logger.LogInfo("🔄 Control loop started with period: %v", l.opts.Period)
	for ctx.Err() == nil {
		l.Step()
		if !l.sleep(ctx, l.opts.Period) {
			break
		}
	}
	logger.LogInfo("🛑 Control loop stopped")
	return nil
}

// Attach joins the network, connects to the broker and subscribes to the
// command topic, each bounded by the backoff policy, then waits the
// settle delay
func (l *Loop) Attach(ctx context.Context) error {
	err := recovery.Retry(ctx, "Network attach", l.opts.Backoff, func(ctx context.Context) error {
		return mqtt.AttachNetwork(ctx, l.network, l.opts.SSID)
	})
	if err == nil {
		err = recovery.Retry(ctx, "Broker connect", l.opts.Backoff, l.openLink)
	}

	switch {
	case err == nil:
		l.health.SetLinkOnline(true)
	case ctx.Err() != nil:
		return ctx.Err()
	case l.opts.SensorOnlyOnFailure:
		l.errs.Handle(err)
		logger.LogWarn("📴 Telemetry link unavailable, continuing in sensor-only mode")
		l.health.SetSensorOnly()
		l.metrics.SetLinkStatus(false)
	default:
		l.errs.Handle(err)
		return fmt.Errorf("telemetry link: %w", err)
	}

	if !l.sleep(ctx, l.opts.SettleDelay) {
		return ctx.Err()
	}
	return nil
}

func (l *Loop) openLink(ctx context.Context) error {
	if l.connect == nil {
		return perrors.NewBrokerError("connect", errors.New("no broker configured"), "")
	}
	link, err := l.connect(ctx)
	if err != nil {
		return err
	}
	command := l.opts.Topics.Command
	link.RegisterHandler(command, l.onCommand)
	if err := link.Subscribe(command); err != nil {
		link.Disconnect()
		return err
	}
	l.link = link
	return nil
}

// onCommand runs on the loop goroutine from PollIncoming
func (l *Loop) onCommand(topic string, payload []byte) {
	text := strings.ToValidUTF8(string(payload), "�")
	logger.LogInfo("💬 Message on %s: %q", topic, text)
	l.view = Transition(l.view, MessageEvent(text), l.opts.HoldTicks)
	l.metrics.IncrementOverrides()
}

// Step runs one iteration without the trailing sleep. Buffered commands
// are handled first. An override iteration renders the message and counts
// down; a sensor iteration samples, renders and publishes.
func (l *Loop) Step() {
	start := l.now()
	if l.link != nil {
		l.link.PollIncoming()
	}

	if l.view.Overriding() {
		l.render(l.view.Display, sensor.Sample{})
		l.view = Transition(l.view, TickEvent(), l.opts.HoldTicks)
		l.health.RecordCycle(display.ModeMessageOverride.String())
		return
	}

	sample := l.sensors.Take()
	absent := l.countReadings(sample)
	l.render(l.view.Display, sample)
	failed := l.publish(sample)

	if l.tracker != nil {
		l.tracker.RecordCycle(absent, failed)
		l.tracker.PrintSummaryIfNeeded()
	}
	l.metrics.ObserveCycleDuration(l.now().Sub(start))
	l.health.RecordCycle(display.ModeSensorView.String())
}

func (l *Loop) render(state display.State, sample sensor.Sample) {
	if err := l.display.Render(state, sample); err != nil {
		logger.LogWarn("⚠️ Display render failed: %v", err)
	}
}

func (l *Loop) countReadings(sample sensor.Sample) (absent int) {
	count := func(name string, ok bool) {
		if ok {
			l.metrics.IncrementSensorReads(name)
			return
		}
		l.metrics.IncrementSensorErrors(name)
		absent++
	}
	count(metrics.SensorDistance, sample.Distance != nil)
	count(metrics.SensorClimate, sample.Temperature != nil && sample.Humidity != nil)
	count(metrics.SensorLight, true)
	return absent
}

// publish sends the four readings and returns how many publishes failed.
// Failures are logged and counted, never retried.
func (l *Loop) publish(sample sensor.Sample) (failed int) {
	if l.link == nil {
		logger.LogTrace("📴 Sensor-only mode, %s", describe(sample))
		return 0
	}
	connected := l.link.IsConnected()
	l.metrics.SetLinkStatus(connected)
	l.health.SetLinkOnline(connected)

	topics := l.opts.Topics
	values := []struct{ topic, value string }{
		{topics.Temperature, sensor.FormatValue(sample.Temperature)},
		{topics.Humidity, sensor.FormatValue(sample.Humidity)},
		{topics.Distance, sensor.FormatValue(sample.Distance)},
		{topics.LightLevel, sensor.FormatFloat(sample.LightPercent)},
	}
	var lastErr error
	for _, v := range values {
		if err := l.link.Publish(v.topic, v.value); err != nil {
			l.errs.Handle(err)
			l.metrics.IncrementMQTTErrors()
			lastErr = err
			failed++
			continue
		}
		l.metrics.IncrementMQTTPublishes()
		logger.LogTrace("📤 %s = %s", v.topic, v.value)
	}

	if failed > 0 {
		l.health.RecordError(lastErr)
	} else {
		l.health.RecordSuccess()
	}
	return failed
}

func describe(s sensor.Sample) string {
	return fmt.Sprintf("distance=%s temperature=%s humidity=%s light=%s",
		sensor.FormatValue(s.Distance), sensor.FormatValue(s.Temperature),
		sensor.FormatValue(s.Humidity), sensor.FormatFloat(s.LightPercent))
}

// shutdown blanks the display, closes the link and releases hardware
func (l *Loop) shutdown() {
	if err := l.display.Blank(); err != nil {
		logger.LogWarn("⚠️ Failed to blank display: %v", err)
	}
	if l.link != nil {
		l.link.Disconnect()
		l.link = nil
	}
	l.health.SetLinkOnline(false)

	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.LogWarn("⚠️ Failed to release hardware: %v", err)
	}
}
