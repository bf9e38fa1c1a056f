package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"pico-monitor/internal/builder"
	"pico-monitor/internal/config"
	"pico-monitor/internal/display"
	"pico-monitor/internal/logger"
	"pico-monitor/internal/sensor"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configPath  string
	envFile     string
	diagnostic  bool
	displayKind string
	logLevel    string
}

func main() {
	if err := run(); err != nil {
		logger.LogError("❌ %v", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("pico-monitor", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (default: search standard locations)")
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "load secrets from this dotenv file if it exists")
	flagSet.BoolVar(&opts.diagnostic, "diagnostic", false, "read every sensor once, check the broker and exit")
	flagSet.StringVar(&opts.displayKind, "display", "", "override display driver (ssd1306 or console)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override log level (error, warn, info, debug, trace)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		// A bare argument is the config path, as in previous releases
		opts.configPath = args[0]
	}

	if err := loadDotEnv(opts.envFile); err != nil {
		return fmt.Errorf("load %s: %w", opts.envFile, err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger.Init(&cfg.Logging)
	logger.LogStartup("pico-monitor %s, logging initialized with level: %s", version, cfg.Logging.Level)

	app, err := builder.NewApplicationBuilder(cfg).WithVersion(version).Build()
	if err != nil {
		return fmt.Errorf("application build error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.diagnostic {
		defer app.Close()
		logger.LogInfo("🔍 Running diagnostic mode...")
		if err := diagnose(ctx, app); err != nil {
			return fmt.Errorf("diagnostic failed: %w", err)
		}
		logger.LogInfo("✅ Diagnostic completed successfully")
		return nil
	}

	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.LogInfo("✅ Application stopped cleanly")
	return nil
}

func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if opts.displayKind != "" {
		cfg.Display.Driver = opts.displayKind
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// diagnose takes one sample, shows it and checks the broker once
func diagnose(ctx context.Context, app *builder.Application) error {
	sample := app.GetSensors().Take()
	logger.LogInfo("📏 Distance: %s cm", sensor.FormatValue(sample.Distance))
	logger.LogInfo("🌡️ Temperature: %s C", sensor.FormatValue(sample.Temperature))
	logger.LogInfo("💧 Humidity: %s %%", sensor.FormatValue(sample.Humidity))
	logger.LogInfo("💡 Light: %s %%", sensor.FormatFloat(sample.LightPercent))

	if err := app.GetRenderer().Render(display.SensorState(), sample); err != nil {
		logger.LogWarn("⚠️ Display check failed: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	link, err := app.GetConnector()(connectCtx)
	if err != nil {
		return err
	}
	defer link.Disconnect()
	logger.LogInfo("✅ Broker reachable at %s", app.GetConfig().MQTT.BrokerURL())
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `pico-monitor reads distance, climate and light sensors, shows them on an
OLED panel and publishes them over MQTT. Messages sent to <prefix>/oled
replace the sensor screen for a number of cycles.

Usage:
  pico-monitor [flags] [config_path]

Flags:
%s`, flagSet.FlagUsages())
}
