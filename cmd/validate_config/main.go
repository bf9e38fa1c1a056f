package main

import (
	"fmt"
	"os"

	"pico-monitor/internal/config"
	"pico-monitor/internal/mqtt"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Network: %s", cfg.Network.Driver)
	if cfg.Network.SSID != "" {
		fmt.Printf(" (SSID %s)", cfg.Network.SSID)
	}
	fmt.Println()
	fmt.Printf("   MQTT Broker: %s\n", cfg.MQTT.BrokerURL())
	fmt.Printf("   Credentials: %s\n", present(cfg.MQTT.Username != "" || cfg.MQTT.Password != ""))
	fmt.Printf("   Publish topics: %s, %s, %s, %s\n", topics.Temperature, topics.Humidity, topics.Distance, topics.LightLevel)
	fmt.Printf("   Command topic: %s\n", topics.Command)
	if cfg.MQTT.Availability {
		fmt.Printf("   Availability topic: %s\n", topics.Availability)
	}
	fmt.Printf("   Link: %d attempts, %d-%d ms backoff, on failure: %s\n",
		cfg.Link.MaxRetries, cfg.Link.InitialDelay, cfg.Link.MaxDelay, cfg.Link.OnFailure)
	fmt.Printf("   Loop: period %d ms, message hold %d cycles, settle %d ms\n",
		cfg.Loop.Period, cfg.Loop.HoldTicks, cfg.Loop.SettleDelay)

	fmt.Printf("\n🔌 Sensors (%s):\n", cfg.Sensors.Driver)
	fmt.Printf("   Distance: trigger %s, echo %s, timeout %d µs\n",
		cfg.Sensors.Distance.TriggerPin, cfg.Sensors.Distance.EchoPin, cfg.Sensors.Distance.Timeout)
	fmt.Printf("   Climate: %s on %s\n", cfg.Sensors.Climate.Model, cfg.Sensors.Climate.Pin)
	fmt.Printf("   Light: ADS1115 0x%02X channel %d, full scale %d\n",
		cfg.Sensors.Light.Address, cfg.Sensors.Light.Channel, cfg.Sensors.Light.MaxRaw)
	fmt.Printf("   Display: %s\n", cfg.Display.Driver)

	if cfg.HTTP.Port > 0 {
		fmt.Printf("   Health/metrics: :%d\n", cfg.HTTP.Port)
	} else {
		fmt.Printf("   Health/metrics: disabled\n")
	}
	fmt.Printf("   Log level: %s\n", cfg.Logging.Level)
}

func present(ok bool) string {
	if ok {
		return "set"
	}
	return "none"
}
