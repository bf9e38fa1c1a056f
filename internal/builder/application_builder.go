package builder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"pico-monitor/internal/config"
	"pico-monitor/internal/control"
	"pico-monitor/internal/display"
	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/hardware"
	"pico-monitor/internal/health"
	apihttp "pico-monitor/internal/http"
	"pico-monitor/internal/logger"
	"pico-monitor/internal/metrics"
	"pico-monitor/internal/mqtt"
	"pico-monitor/internal/recovery"
	"pico-monitor/internal/sensor"
)

// Sensor and display drivers
const (
	DriverPeriph    = "periph"
	DriverSimulated = "simulated"
	DriverSSD1306   = "ssd1306"
	DriverConsole   = "console"
)

// ApplicationBuilder provides a fluent interface for constructing Application instances.
// Anything not supplied is created from the config.
type ApplicationBuilder struct {
	config           *config.Config
	version          string
	sensors          control.SampleSource
	screen           display.Screen
	connector        control.Connector
	network          mqtt.Network
	metrics          metrics.MetricsCollector
	healthMonitor    *health.LinkHealthMonitor
	errorGracePeriod time.Duration
	consoleOut       io.Writer
}

// NewApplicationBuilder creates a new builder with default configuration
func NewApplicationBuilder(cfg *config.Config) *ApplicationBuilder {
	return &ApplicationBuilder{
		config:           cfg,
		errorGracePeriod: 30 * time.Second,
		consoleOut:       os.Stdout,
	}
}

// WithVersion sets the version reported by /health
func (b *ApplicationBuilder) WithVersion(version string) *ApplicationBuilder {
	b.version = version
	return b
}

// WithSensors sets a custom sample source
func (b *ApplicationBuilder) WithSensors(s control.SampleSource) *ApplicationBuilder {
	b.sensors = s
	return b
}

// WithScreen sets a custom screen
func (b *ApplicationBuilder) WithScreen(s display.Screen) *ApplicationBuilder {
	b.screen = s
	return b
}

// WithConnector sets a custom broker connector
func (b *ApplicationBuilder) WithConnector(c control.Connector) *ApplicationBuilder {
	b.connector = c
	return b
}

// WithNetwork sets a custom network attacher
func (b *ApplicationBuilder) WithNetwork(n mqtt.Network) *ApplicationBuilder {
	b.network = n
	return b
}

// WithMetrics sets a custom metrics collector
func (b *ApplicationBuilder) WithMetrics(mc metrics.MetricsCollector) *ApplicationBuilder {
	b.metrics = mc
	return b
}

// WithHealthMonitor sets a custom health monitor
func (b *ApplicationBuilder) WithHealthMonitor(monitor *health.LinkHealthMonitor) *ApplicationBuilder {
	b.healthMonitor = monitor
	return b
}

// WithErrorGracePeriod sets how long publish failures are tolerated
// before the node reports degraded
func (b *ApplicationBuilder) WithErrorGracePeriod(period time.Duration) *ApplicationBuilder {
	b.errorGracePeriod = period
	return b
}

// WithConsoleOutput sets where the console display prints frames
func (b *ApplicationBuilder) WithConsoleOutput(w io.Writer) *ApplicationBuilder {
	b.consoleOut = w
	return b
}

// Build constructs the Application with all dependencies.
// Hardware opened here is released by Application.Close.
func (b *ApplicationBuilder) Build() (_ *Application, err error) {
	if b.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	cfg := b.config

	app := &Application{config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if b.metrics == nil {
		if cfg.HTTP.Port > 0 {
			app.prometheus = metrics.NewPrometheusMetrics()
			b.metrics = app.prometheus
		} else {
			b.metrics = metrics.NewNullMetrics()
		}
	} else if pm, ok := b.metrics.(*metrics.PrometheusMetrics); ok {
		app.prometheus = pm
	}
	app.metrics = b.metrics

	if b.healthMonitor == nil {
		b.healthMonitor = health.NewLinkHealthMonitor(b.errorGracePeriod)
	}
	app.health = b.healthMonitor

	if b.sensors == nil {
		if b.sensors, err = b.buildSensors(app); err != nil {
			return nil, err
		}
	}
	app.sensors = b.sensors

	if b.screen == nil {
		if b.screen, err = b.buildScreen(app); err != nil {
			return nil, err
		}
	}
	app.renderer = display.NewRenderer(b.screen)

	if b.network == nil {
		b.network = buildNetwork(cfg.Network)
	}
	if b.connector == nil {
		b.connector = brokerConnector(sessionConfig(cfg), b.metrics)
	}
	app.connector = b.connector

	if cfg.HTTP.Port > 0 {
		var metricsHandler http.Handler
		if app.prometheus != nil {
			metricsHandler = app.prometheus
		}
		router := apihttp.NewRouter(apihttp.NewHealthHandler(app.health, b.version), metricsHandler)
		app.server = apihttp.NewServer(cfg.HTTP.Port, router)
	}

	app.loop = control.NewLoop(control.Options{
		Period:              cfg.Loop.PeriodDuration(),
		SettleDelay:         cfg.Loop.SettleDuration(),
		HoldTicks:           cfg.Loop.HoldTicks,
		Backoff:             backoffConfig(cfg),
		SensorOnlyOnFailure: cfg.Offline(),
		SSID:                cfg.Network.SSID,
		Topics:              mqtt.NewTopics(cfg.MQTT.TopicPrefix),
	}, control.Dependencies{
		Network: b.network,
		Connect: b.connector,
		Sensors: b.sensors,
		Display: app.renderer,
		Metrics: b.metrics,
		Health:  app.health,
		Tracker: metrics.NewPerformanceTracker(cfg.Loop.SummaryDuration()),
		Errors:  perrors.NewErrorHandler(b.metrics, logger.NewStandardLogger()),
		Closers: []io.Closer{app},
	})

	logger.LogStartup("Application built: sensors=%s display=%s network=%s broker=%s",
		cfg.Sensors.Driver, cfg.Display.Driver, b.network.Name(), cfg.MQTT.BrokerURL())
	return app, nil
}

func (b *ApplicationBuilder) buildSensors(app *Application) (control.SampleSource, error) {
	cfg := b.config.Sensors
	if cfg.Driver == DriverSimulated {
		sim := hardware.NewSimulatedNow()
		return sensor.NewSampler(sim, sim, sim), nil
	}

	model, err := sensor.ParseModel(cfg.Climate.Model)
	if err != nil {
		return nil, perrors.NewConfigError("sensors.climate.model", "%v", err)
	}
	board, err := hardware.OpenBoard(hardware.Wiring{
		TriggerPin:   cfg.Distance.TriggerPin,
		EchoPin:      cfg.Distance.EchoPin,
		ClimatePin:   cfg.Climate.Pin,
		LightBus:     cfg.Light.Bus,
		LightAddress: cfg.Light.Address,
		LightChannel: cfg.Light.Channel,
	})
	if err != nil {
		return nil, fmt.Errorf("open sensor board: %w", err)
	}
	app.board = board

	clock := sensor.NewSystemClock()
	ranger := sensor.NewDistanceRanger(board.Trigger, board.Echo, clock, sensor.DefaultTriggerPulse, cfg.Distance.TimeoutDuration())
	climate := sensor.NewClimateSensor(sensor.NewGPIOClimateTransport(board.Climate, clock, model), model, clock, logger.NewStandardLogger())
	light := sensor.NewLightSensor(board.Light, cfg.Light.MaxRaw)
	return sensor.NewSampler(ranger, climate, light), nil
}

func (b *ApplicationBuilder) buildScreen(app *Application) (display.Screen, error) {
	if b.config.Display.Driver == DriverConsole {
		return display.NewConsoleScreen(b.consoleOut), nil
	}

	if app.board == nil {
		board, err := hardware.OpenHost()
		if err != nil {
			return nil, err
		}
		app.board = board
	}
	screen, err := app.board.OpenOLED(b.config.Display.Bus)
	if err != nil {
		return nil, fmt.Errorf("open display: %w", err)
	}
	return screen, nil
}

func buildNetwork(cfg config.NetworkConfig) mqtt.Network {
	switch cfg.Driver {
	case "nmcli":
		return mqtt.NewNMCLINetwork(cfg.Interface, cfg.SSID, cfg.Password)
	case "none":
		return mqtt.NoNetwork{}
	default:
		return mqtt.NewHostNetwork(cfg.Interface, cfg.SSID)
	}
}

func sessionConfig(cfg *config.Config) mqtt.SessionConfig {
	sc := mqtt.SessionConfig{
		BrokerURL:      cfg.MQTT.BrokerURL(),
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		ClientID:       cfg.MQTT.ClientID,
		KeepAlive:      time.Duration(cfg.MQTT.KeepAlive) * time.Second,
		ConnectTimeout: time.Duration(cfg.MQTT.ConnectTimeout) * time.Millisecond,
		PublishTimeout: time.Duration(cfg.MQTT.PublishTimeout) * time.Millisecond,
		QueueSize:      cfg.Loop.QueueSize,
	}
	if cfg.MQTT.Availability {
		sc.AvailabilityTopic = mqtt.NewTopics(cfg.MQTT.TopicPrefix).Availability
	}
	return sc
}

func brokerConnector(sc mqtt.SessionConfig, mc metrics.MetricsCollector) control.Connector {
	return func(ctx context.Context) (control.Link, error) {
		session, err := mqtt.ConnectBroker(ctx, sc, mc)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// backoffConfig bounds each attempt by the longer of the attach and
// connect timeouts
func backoffConfig(cfg *config.Config) recovery.BackoffConfig {
	attempt := time.Duration(cfg.Network.AttachTimeout) * time.Millisecond
	if connect := time.Duration(cfg.MQTT.ConnectTimeout) * time.Millisecond; connect > attempt {
		attempt = connect
	}
	return recovery.BackoffConfig{
		InitialDelay:   time.Duration(cfg.Link.InitialDelay) * time.Millisecond,
		MaxDelay:       time.Duration(cfg.Link.MaxDelay) * time.Millisecond,
		Multiplier:     cfg.Link.Multiplier,
		MaxRetries:     cfg.Link.MaxRetries,
		AttemptTimeout: attempt,
	}
}

// Application is the assembled node
type Application struct {
	config     *config.Config
	loop       *control.Loop
	sensors    control.SampleSource
	renderer   *display.Renderer
	connector  control.Connector
	metrics    metrics.MetricsCollector
	prometheus *metrics.PrometheusMetrics
	health     *health.LinkHealthMonitor
	server     *apihttp.Server
	board      *hardware.Board
	closeOnce  sync.Once
	closeErr   error
}

// Run starts the health server when enabled and runs the control loop
// until ctx is cancelled
func (app *Application) Run(ctx context.Context) error {
	if app.server != nil {
		if err := app.server.Start(); err != nil {
			logger.LogWarn("⚠️ Health server disabled: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := app.server.Shutdown(shutdownCtx); err != nil {
					logger.LogWarn("⚠️ Health server shutdown: %v", err)
				}
			}()
		}
	}
	return app.loop.Run(ctx)
}

// Close releases the hardware. It is safe to call more than once.
func (app *Application) Close() error {
	app.closeOnce.Do(func() {
		if app.board != nil {
			app.closeErr = app.board.Close()
		}
	})
	return app.closeErr
}

// GetConfig returns the application config
func (app *Application) GetConfig() *config.Config {
	return app.config
}

// GetLoop returns the control loop
func (app *Application) GetLoop() *control.Loop {
	return app.loop
}

// GetSensors returns the sample source
func (app *Application) GetSensors() control.SampleSource {
	return app.sensors
}

// GetRenderer returns the display renderer
func (app *Application) GetRenderer() *display.Renderer {
	return app.renderer
}

// GetConnector returns the broker connector
func (app *Application) GetConnector() control.Connector {
	return app.connector
}

// GetHealthMonitor returns the health monitor
func (app *Application) GetHealthMonitor() *health.LinkHealthMonitor {
	return app.health
}

// GetPrometheus returns the Prometheus collector, nil when HTTP is disabled
func (app *Application) GetPrometheus() *metrics.PrometheusMetrics {
	return app.prometheus
}
