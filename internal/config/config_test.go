package config

import (
	"errors"
	"os"
	"testing"
	"time"

	perrors "pico-monitor/internal/errors"
)

const minimalConfig = `
mqtt:
  broker: "broker.local"
`

// TestConfigLoading tests configuration file loading
func TestConfigLoading(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	configContent := `
network:
  driver: "nmcli"
  ssid: "workshop"

mqtt:
  broker: "cluster.s1.eu.hivemq.cloud"
  port: 8883
  username: "node"
  topic_prefix: "tank"

loop:
  period: 2000
  hold_ticks: 6

sensors:
  climate:
    model: "dht22"
  light:
    channel: 2
    max_raw: 32767

display:
  driver: "console"

logging:
  level: "debug"
`
	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()

	cfg, err := LoadConfig(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.MQTT.BrokerURL() != "ssl://cluster.s1.eu.hivemq.cloud:8883" {
		t.Errorf("Expected TLS broker URL, got %s", cfg.MQTT.BrokerURL())
	}
	if cfg.MQTT.TopicPrefix != "tank" {
		t.Errorf("Expected topic prefix 'tank', got %s", cfg.MQTT.TopicPrefix)
	}
	if cfg.Loop.PeriodDuration() != 2*time.Second {
		t.Errorf("Expected 2s period, got %v", cfg.Loop.PeriodDuration())
	}
	if cfg.Loop.HoldTicks != 6 {
		t.Errorf("Expected 6 hold ticks, got %d", cfg.Loop.HoldTicks)
	}
	if cfg.Sensors.Light.MaxRaw != 32767 || cfg.Sensors.Light.Channel != 2 {
		t.Errorf("Unexpected light config: %+v", cfg.Sensors.Light)
	}
	if cfg.Display.Driver != "console" {
		t.Errorf("Expected console display, got %s", cfg.Display.Driver)
	}

	t.Log("✅ Config loading test passed")
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadConfigFromString(minimalConfig)
	if err != nil {
		t.Fatalf("Failed to load minimal config: %v", err)
	}

	if cfg.MQTT.Port != 1883 {
		t.Errorf("Expected default port 1883, got %d", cfg.MQTT.Port)
	}
	if cfg.MQTT.BrokerURL() != "tcp://broker.local:1883" {
		t.Errorf("Unexpected broker URL %s", cfg.MQTT.BrokerURL())
	}
	if cfg.MQTT.TopicPrefix != "pico" {
		t.Errorf("Expected default prefix 'pico', got %s", cfg.MQTT.TopicPrefix)
	}
	if cfg.Loop.PeriodDuration() != 2*time.Second || cfg.Loop.SettleDuration() != 2*time.Second {
		t.Errorf("Unexpected loop timing: %+v", cfg.Loop)
	}
	if cfg.Loop.HoldTicks != 12 {
		t.Errorf("Expected 12 hold ticks, got %d", cfg.Loop.HoldTicks)
	}
	if cfg.Sensors.Distance.TimeoutDuration() != 30*time.Millisecond {
		t.Errorf("Expected 30ms echo timeout, got %v", cfg.Sensors.Distance.TimeoutDuration())
	}
	if cfg.Sensors.Light.MaxRaw != 65535 {
		t.Errorf("Expected full-scale light max, got %d", cfg.Sensors.Light.MaxRaw)
	}
	if cfg.Display.Driver != "ssd1306" {
		t.Errorf("Expected ssd1306 display, got %s", cfg.Display.Driver)
	}
	if cfg.Offline() {
		t.Error("Expected abort as the default link failure policy")
	}

	t.Log("✅ Defaults applied")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"missing broker", "mqtt:\n  port: 1883\n", "mqtt.broker"},
		{"bad port", "mqtt:\n  broker: b\n  port: 70000\n", "mqtt.port"},
		{"wildcard prefix", "mqtt:\n  broker: b\n  topic_prefix: \"a/#\"\n", "mqtt.topic_prefix"},
		{"nmcli without ssid", "network:\n  driver: nmcli\nmqtt:\n  broker: b\n", "network.ssid"},
		{"bad policy", "mqtt:\n  broker: b\nlink:\n  on_failure: retry\n", "link.on_failure"},
		{"bad model", "mqtt:\n  broker: b\nsensors:\n  climate:\n    model: dht33\n", "sensors.climate.model"},
		{"period below dht22 interval", "mqtt:\n  broker: b\nloop:\n  period: 1500\nsensors:\n  climate:\n    model: dht22\n", "loop.period"},
		{"period below dht11 interval", "mqtt:\n  broker: b\nloop:\n  period: 500\n", "loop.period"},
		{"bad display", "mqtt:\n  broker: b\ndisplay:\n  driver: lcd\n", "display.driver"},
		{"bad level", "mqtt:\n  broker: b\nlogging:\n  level: loud\n", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromString(tt.content)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var cfgErr *perrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestSimulatedSensorsAllowShortPeriod(t *testing.T) {
	cfg, err := LoadConfigFromString("mqtt:\n  broker: b\nloop:\n  period: 100\nsensors:\n  driver: simulated\n  climate:\n    model: dht22\n")
	if err != nil {
		t.Fatalf("Expected simulated sensors to accept a short period: %v", err)
	}
	if cfg.Loop.Period != 100 {
		t.Errorf("Expected 100 ms period, got %d", cfg.Loop.Period)
	}

	t.Log("✅ Simulated period test passed")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvWiFiPassword: "wifi-secret",
		EnvMQTTUsername: "env-user",
		EnvMQTTPassword: "mqtt-secret",
	}
	cfg := Default()
	cfg.MQTT.Username = "file-user"
	cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	if cfg.Network.Password != "wifi-secret" || cfg.MQTT.Password != "mqtt-secret" {
		t.Errorf("Secrets not applied: %+v %+v", cfg.Network, cfg.MQTT)
	}
	if cfg.MQTT.Username != "env-user" {
		t.Errorf("Expected environment to override username, got %s", cfg.MQTT.Username)
	}
}

func TestBrokerURLKeepsExplicitScheme(t *testing.T) {
	m := MQTTConfig{Broker: "mqtts://example.org:8884", Port: 1883}
	if m.BrokerURL() != "mqtts://example.org:8884" {
		t.Errorf("Unexpected URL %s", m.BrokerURL())
	}
}
