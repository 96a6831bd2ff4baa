// Package config loads daemon settings from defaults, an optional YAML file
// and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-led/internal/gpio"
	"github.com/sweeney/button-led/internal/logic"
)

// Backends.
const (
	BackendCdev    = "gpiocdev"
	BackendPeriph  = "periph"
	BackendMachine = "machine"
)

// DefaultQueueCapacity is the number of presses buffered for the toggle task.
const DefaultQueueCapacity = 10

// ErrHelp is returned by Parse when usage was requested.
var ErrHelp = pflag.ErrHelp

// Config holds all daemon settings.
type Config struct {
	Backend       string        `yaml:"backend"`
	Chip          string        `yaml:"chip"`
	ButtonPin     int           `yaml:"button_pin"`
	LEDPin        int           `yaml:"led_pin"`
	ActiveLow     bool          `yaml:"active_low"`
	Debounce      time.Duration `yaml:"debounce"`
	QueueCapacity int           `yaml:"queue_capacity"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	OpenRetries   int           `yaml:"open_retries"`

	// PrintState is flag-only: read the lines once and exit.
	PrintState bool `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend:       BackendCdev,
		Chip:          "gpiochip0",
		ButtonPin:     gpio.DefaultPinButton,
		LEDPin:        gpio.DefaultPinLED,
		Debounce:      logic.DefaultDebounceWindow,
		QueueCapacity: DefaultQueueCapacity,
		Heartbeat:     15 * time.Minute,
		LogLevel:      "info",
		LogFormat:     "text",
		OpenRetries:   5,
	}
}

// Polarity returns the LED wiring described by ActiveLow.
func (c Config) Polarity() logic.Polarity {
	if c.ActiveLow {
		return logic.ActiveLow
	}
	return logic.ActiveHigh
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// applyDefaults fills in values a config file cleared. queue_capacity is
// left alone: an absent key keeps the default, an explicit 0 reaches queue
// creation the same way --queue-capacity=0 does.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.Chip == "" {
		cfg.Chip = def.Chip
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
}

// Validate checks settings that would otherwise fail late on hardware.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendCdev, BackendPeriph, BackendMachine:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.ButtonPin < 0 {
		errs = append(errs, fmt.Errorf("button pin %d is negative", c.ButtonPin))
	}
	if c.LEDPin < 0 {
		errs = append(errs, fmt.Errorf("led pin %d is negative", c.LEDPin))
	}
	if c.ButtonPin == c.LEDPin {
		errs = append(errs, fmt.Errorf("button and led share pin %d", c.ButtonPin))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce %v is negative", c.Debounce))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat %v is negative", c.Heartbeat))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Parse builds the configuration from command-line arguments (without the
// program name). Flags set explicitly override values from --config.
// A queue capacity <= 0 is passed through; queue creation reports it.
func Parse(name string, args []string) (Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	flags := Default()
	path := fs.StringP("config", "c", "", "YAML config file")
	fs.StringVar(&flags.Backend, "backend", flags.Backend, "GPIO backend: gpiocdev, periph or machine")
	fs.StringVar(&flags.Chip, "chip", flags.Chip, "GPIO chip (gpiocdev backend)")
	fs.IntVar(&flags.ButtonPin, "pin-button", flags.ButtonPin, "Line offset of the push button")
	fs.IntVar(&flags.LEDPin, "pin-led", flags.LEDPin, "Line offset of the LED")
	fs.BoolVar(&flags.ActiveLow, "active-low", flags.ActiveLow, "LED lights when the line is driven low")
	fs.DurationVar(&flags.Debounce, "debounce", flags.Debounce, "Debounce window")
	fs.IntVar(&flags.QueueCapacity, "queue-capacity", flags.QueueCapacity, "Button event queue capacity")
	fs.DurationVar(&flags.Heartbeat, "heartbeat", flags.Heartbeat, "Heartbeat log interval (0 to disable)")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text or json")
	fs.IntVar(&flags.OpenRetries, "open-retries", flags.OpenRetries, "Retries when opening the GPIO backend")
	fs.BoolVar(&flags.PrintState, "print-state", false, "Print current line state and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		var err error
		if cfg, err = Load(*path); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = flags.Backend
		case "chip":
			cfg.Chip = flags.Chip
		case "pin-button":
			cfg.ButtonPin = flags.ButtonPin
		case "pin-led":
			cfg.LEDPin = flags.LEDPin
		case "active-low":
			cfg.ActiveLow = flags.ActiveLow
		case "debounce":
			cfg.Debounce = flags.Debounce
		case "queue-capacity":
			cfg.QueueCapacity = flags.QueueCapacity
		case "heartbeat":
			cfg.Heartbeat = flags.Heartbeat
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "open-retries":
			cfg.OpenRetries = flags.OpenRetries
		}
	})
	cfg.PrintState = flags.PrintState

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
