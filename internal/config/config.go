package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	perrors "pico-monitor/internal/errors"
	"pico-monitor/internal/logger"
)

// Config represents the complete application configuration
type Config struct {
	Network NetworkConfig        `yaml:"network"`
	MQTT    MQTTConfig           `yaml:"mqtt"`
	Link    LinkConfig           `yaml:"link"`
	Loop    LoopConfig           `yaml:"loop"`
	Sensors SensorsConfig        `yaml:"sensors"`
	Display DisplayConfig        `yaml:"display"`
	HTTP    HTTPConfig           `yaml:"http"`
	Logging logger.LoggingConfig `yaml:"logging"`
}

// NetworkConfig selects how the node attaches to the local network
type NetworkConfig struct {
	Driver        string `yaml:"driver"` // host, nmcli or none
	SSID          string `yaml:"ssid"`
	Password      string `yaml:"password"`
	Interface     string `yaml:"interface"`
	AttachTimeout int    `yaml:"attach_timeout"` // Per-attempt timeout in milliseconds
}

// MQTTConfig contains broker session settings
type MQTTConfig struct {
	Broker         string `yaml:"broker"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	ClientID       string `yaml:"client_id"`
	TopicPrefix    string `yaml:"topic_prefix"`
	KeepAlive      int    `yaml:"keep_alive"`      // Seconds
	ConnectTimeout int    `yaml:"connect_timeout"` // Milliseconds
	PublishTimeout int    `yaml:"publish_timeout"` // Milliseconds
	Availability   bool   `yaml:"availability"`    // Retained online/offline with LWT
}

// LinkConfig controls attach/connect retries
type LinkConfig struct {
	MaxRetries   int     `yaml:"max_retries"`
	InitialDelay int     `yaml:"initial_delay"` // Milliseconds
	MaxDelay     int     `yaml:"max_delay"`     // Milliseconds
	Multiplier   float64 `yaml:"multiplier"`
	OnFailure    string  `yaml:"on_failure"` // abort or offline
}

// LoopConfig contains control loop timing
type LoopConfig struct {
	Period          int `yaml:"period"`       // Milliseconds between iterations
	HoldTicks       int `yaml:"hold_ticks"`   // Iterations an operator message stays on screen
	SettleDelay     int `yaml:"settle_delay"` // Milliseconds before the first sample
	QueueSize       int `yaml:"queue_size"`   // Inbound messages buffered between polls
	SummaryInterval int `yaml:"summary_interval"`
}

// SensorsConfig contains sensor wiring
type SensorsConfig struct {
	Driver   string         `yaml:"driver"` // periph or simulated
	Distance DistanceConfig `yaml:"distance"`
	Climate  ClimateConfig  `yaml:"climate"`
	Light    LightConfig    `yaml:"light"`
}

// DistanceConfig wires the ultrasonic ranger
type DistanceConfig struct {
	TriggerPin string `yaml:"trigger_pin"`
	EchoPin    string `yaml:"echo_pin"`
	Timeout    int    `yaml:"timeout"` // Microseconds per echo edge
}

// ClimateConfig wires the DHT sensor
type ClimateConfig struct {
	Pin   string `yaml:"pin"`
	Model string `yaml:"model"`
}

// LightConfig wires the ADC channel behind the photoresistor
type LightConfig struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	Channel int    `yaml:"channel"`
	MaxRaw  uint16 `yaml:"max_raw"`
}

// DisplayConfig selects the screen driver
type DisplayConfig struct {
	Driver string `yaml:"driver"` // ssd1306 or console
	Bus    string `yaml:"bus"`
}

// HTTPConfig contains the health/metrics listener; port 0 disables it
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Environment overrides for secrets
const (
	EnvWiFiPassword = "PICO_WIFI_PASSWORD"
	EnvMQTTUsername = "PICO_MQTT_USERNAME"
	EnvMQTTPassword = "PICO_MQTT_PASSWORD"
)

// Link failure policies
const (
	OnFailureAbort   = "abort"
	OnFailureOffline = "offline"
)

// LoadConfig loads configuration from the first readable location
func LoadConfig(configPath string) (*Config, error) {
	paths := []string{
		configPath,
		"/etc/pico-monitor/config.yaml",
		"/etc/pico-monitor.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	config, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing configuration from %s: %w", usedPath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}
	return config, nil
}

// LoadConfigFromString parses and validates YAML content
func LoadConfigFromString(content string) (*Config, error) {
	config, err := parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	config.ApplyEnv(os.LookupEnv)
	config.ApplyDefaults()
	return config, nil
}

// Default returns a configuration with every optional field populated
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values with their defaults
func (c *Config) ApplyDefaults() {
	setString(&c.Network.Driver, "host")
	setInt(&c.Network.AttachTimeout, 10000)

	setInt(&c.MQTT.Port, 1883)
	setString(&c.MQTT.TopicPrefix, "pico")
	setInt(&c.MQTT.KeepAlive, 60)
	setInt(&c.MQTT.ConnectTimeout, 10000)
	setInt(&c.MQTT.PublishTimeout, 500)

	setInt(&c.Link.MaxRetries, 5)
	setInt(&c.Link.InitialDelay, 1000)
	setInt(&c.Link.MaxDelay, 30000)
	if c.Link.Multiplier == 0 {
		c.Link.Multiplier = 2
	}
	setString(&c.Link.OnFailure, OnFailureAbort)

	setInt(&c.Loop.Period, 2000)
	setInt(&c.Loop.HoldTicks, 12)
	setInt(&c.Loop.SettleDelay, 2000)
	setInt(&c.Loop.QueueSize, 8)
	setInt(&c.Loop.SummaryInterval, 30000)

	setString(&c.Sensors.Driver, "periph")
	setString(&c.Sensors.Distance.TriggerPin, "GPIO23")
	setString(&c.Sensors.Distance.EchoPin, "GPIO24")
	setInt(&c.Sensors.Distance.Timeout, 30000)
	setString(&c.Sensors.Climate.Pin, "GPIO4")
	setString(&c.Sensors.Climate.Model, "dht11")
	if c.Sensors.Light.Address == 0 {
		c.Sensors.Light.Address = 0x48
	}
	if c.Sensors.Light.MaxRaw == 0 {
		c.Sensors.Light.MaxRaw = 65535
	}

	setString(&c.Display.Driver, "ssd1306")

	setString(&c.Logging.Level, logger.LogLevelInfo)
}

// ApplyEnv overrides secrets from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvWiFiPassword); ok {
		c.Network.Password = v
	}
	if v, ok := lookup(EnvMQTTUsername); ok {
		c.MQTT.Username = v
	}
	if v, ok := lookup(EnvMQTTPassword); ok {
		c.MQTT.Password = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Network.Driver {
	case "host", "none":
	case "nmcli":
		if c.Network.SSID == "" {
			return perrors.NewConfigError("network.ssid", "required by the nmcli driver")
		}
	default:
		return perrors.NewConfigError("network.driver", "unknown driver %q", c.Network.Driver)
	}
	if c.MQTT.Broker == "" {
		return perrors.NewConfigError("mqtt.broker", "MQTT broker is not specified")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return perrors.NewConfigError("mqtt.port", "must be between 1 and 65535, got %d", c.MQTT.Port)
	}
	if strings.ContainsAny(c.MQTT.TopicPrefix, "+#") || strings.HasSuffix(c.MQTT.TopicPrefix, "/") {
		return perrors.NewConfigError("mqtt.topic_prefix", "invalid topic prefix %q", c.MQTT.TopicPrefix)
	}
	if c.Link.MaxRetries < 0 {
		return perrors.NewConfigError("link.max_retries", "must be non-negative")
	}
	if c.Link.Multiplier < 1 {
		return perrors.NewConfigError("link.multiplier", "must be at least 1, got %g", c.Link.Multiplier)
	}
	if c.Link.OnFailure != OnFailureAbort && c.Link.OnFailure != OnFailureOffline {
		return perrors.NewConfigError("link.on_failure", "must be %q or %q", OnFailureAbort, OnFailureOffline)
	}
	if c.Loop.Period <= 0 {
		return perrors.NewConfigError("loop.period", "must be positive")
	}
	if c.Loop.HoldTicks <= 0 {
		return perrors.NewConfigError("loop.hold_ticks", "must be positive")
	}
	if c.Loop.SettleDelay < 0 {
		return perrors.NewConfigError("loop.settle_delay", "must be non-negative")
	}
	if c.Loop.QueueSize <= 0 {
		return perrors.NewConfigError("loop.queue_size", "must be positive")
	}
	if c.Sensors.Driver != "periph" && c.Sensors.Driver != "simulated" {
		return perrors.NewConfigError("sensors.driver", "unknown driver %q", c.Sensors.Driver)
	}
	if c.Sensors.Distance.Timeout <= 0 {
		return perrors.NewConfigError("sensors.distance.timeout", "must be positive")
	}
	if m := strings.ToLower(c.Sensors.Climate.Model); m != "dht11" && m != "dht22" {
		return perrors.NewConfigError("sensors.climate.model", "must be dht11 or dht22, got %q", c.Sensors.Climate.Model)
	}
	if c.Sensors.Driver == "periph" {
		if floor := climateMinPeriod(c.Sensors.Climate.Model); c.Loop.Period < floor {
			return perrors.NewConfigError("loop.period", "must be at least %d ms for %s, got %d",
				floor, strings.ToLower(c.Sensors.Climate.Model), c.Loop.Period)
		}
	}
	if c.Sensors.Light.Channel < 0 || c.Sensors.Light.Channel > 3 {
		return perrors.NewConfigError("sensors.light.channel", "must be 0-3, got %d", c.Sensors.Light.Channel)
	}
	if c.Display.Driver != "ssd1306" && c.Display.Driver != "console" {
		return perrors.NewConfigError("display.driver", "unknown driver %q", c.Display.Driver)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return perrors.NewConfigError("http.port", "must be between 0 and 65535, got %d", c.HTTP.Port)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return perrors.NewConfigError("logging.level", "unknown level %q", c.Logging.Level)
	}
	return nil
}

// Offline reports whether the loop degrades to sensor-only mode when the
// link cannot be established
func (c *Config) Offline() bool {
	return c.Link.OnFailure == OnFailureOffline
}

// PeriodDuration returns the loop period
func (l LoopConfig) PeriodDuration() time.Duration {
	return time.Duration(l.Period) * time.Millisecond
}

// SettleDuration returns the delay before the first sample
func (l LoopConfig) SettleDuration() time.Duration {
	return time.Duration(l.SettleDelay) * time.Millisecond
}

// SummaryDuration returns how often the cycle summary is logged
func (l LoopConfig) SummaryDuration() time.Duration {
	return time.Duration(l.SummaryInterval) * time.Millisecond
}

// TimeoutDuration returns the per-edge echo timeout
func (d DistanceConfig) TimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Microsecond
}

// BrokerURL returns the broker as a paho server URL. Bare hosts get tcp://
// or, on port 8883, ssl://.
func (m MQTTConfig) BrokerURL() string {
	if strings.Contains(m.Broker, "://") {
		return m.Broker
	}
	scheme := "tcp"
	if m.Port == 8883 {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, m.Broker, m.Port)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

// climateMinPeriod is the shortest loop period in ms a climate model can be
// read at
func climateMinPeriod(model string) int {
	if strings.ToLower(model) == "dht22" {
		return 2000
	}
	return 1000
}
