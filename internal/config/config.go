// Package config loads the access-logger configuration file.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/access-logger/internal/accesslog"
	"github.com/sweeney/access-logger/internal/gpio"
)

// Sensor sources.
const (
	SensorSimulated = "simulated"
	SensorMQTT      = "mqtt"
)

// Config represents the overall daemon configuration.
type Config struct {
	Log         LogConfig    `yaml:"log"`
	SampleMs    int          `yaml:"sample_ms"`
	HeartbeatMs int          `yaml:"heartbeat_ms"`
	Buttons     ButtonConfig `yaml:"buttons"`
	Sensor      SensorConfig `yaml:"sensor"`
	MQTT        MQTTConfig   `yaml:"mqtt"`
	HTTP        HTTPConfig   `yaml:"http"`

	SampleInterval    time.Duration `yaml:"-"`
	HeartbeatInterval time.Duration `yaml:"-"`
}

// LogConfig holds the access log settings.
type LogConfig struct {
	Path   string           `yaml:"path"`
	Format accesslog.Format `yaml:"format"`
}

// ButtonConfig holds the GPIO button wiring.
type ButtonConfig struct {
	Chip       string `yaml:"chip"`
	PinA       int    `yaml:"pin_a"`
	PinB       int    `yaml:"pin_b"`
	PinC       int    `yaml:"pin_c"`
	DebounceMs int    `yaml:"debounce_ms"`

	Debounce time.Duration `yaml:"-"`
}

// Pins returns the configured pins.
func (b ButtonConfig) Pins() gpio.Pins {
	return gpio.Pins{A: b.PinA, B: b.PinB, C: b.PinC}
}

// SensorConfig selects where readings come from.
type SensorConfig struct {
	Source string `yaml:"source"`
	Seed   int64  `yaml:"seed"`  // simulated only; 0 seeds from the clock
	Topic  string `yaml:"topic"` // mqtt only
}

// MQTTConfig holds the broker connection used for mirroring and for the
// MQTT sensor source.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// HTTPConfig holds the status server settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	pins := gpio.DefaultPins()
	cfg := &Config{
		Log:         LogConfig{Path: "access_data.csv", Format: accesslog.FormatCompact},
		SampleMs:    1000,
		HeartbeatMs: 15 * 60 * 1000,
		Buttons: ButtonConfig{
			Chip:       "gpiochip0",
			PinA:       pins.A,
			PinB:       pins.B,
			PinC:       pins.C,
			DebounceMs: 50,
		},
		Sensor: SensorConfig{Source: SensorSimulated, Topic: "access/logger/sensor"},
		MQTT:   MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "access-logger"},
		HTTP:   HTTPConfig{Addr: ":8080"},
	}
	cfg.resolve()
	return cfg
}

// Load reads the configuration from the given path. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if cfg.SampleMs <= 0 {
		log.Printf("sample_ms is not set or invalid; defaulting to 1000")
		cfg.SampleMs = 1000
	}
	if cfg.HeartbeatMs < 0 {
		cfg.HeartbeatMs = 0
	}
	if cfg.Buttons.DebounceMs < 0 {
		cfg.Buttons.DebounceMs = 0
	}
	if f, err := accesslog.ParseFormat(string(cfg.Log.Format)); err == nil {
		cfg.Log.Format = f
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "access-logger"
	}
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// resolve fills the derived duration fields.
func (c *Config) resolve() {
	c.SampleInterval = time.Duration(c.SampleMs) * time.Millisecond
	c.HeartbeatInterval = time.Duration(c.HeartbeatMs) * time.Millisecond
	c.Buttons.Debounce = time.Duration(c.Buttons.DebounceMs) * time.Millisecond
}

// Validate reports the first setting the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}
	if _, err := accesslog.ParseFormat(string(c.Log.Format)); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	p := c.Buttons
	if p.PinA == p.PinB || p.PinB == p.PinC || p.PinA == p.PinC {
		return fmt.Errorf("buttons: pins must be distinct (a=%d b=%d c=%d)", p.PinA, p.PinB, p.PinC)
	}
	switch c.Sensor.Source {
	case SensorSimulated:
	case SensorMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("sensor.source mqtt requires mqtt.broker")
		}
		if c.Sensor.Topic == "" {
			return fmt.Errorf("sensor.source mqtt requires sensor.topic")
		}
	default:
		return fmt.Errorf("sensor.source: unknown source %q", c.Sensor.Source)
	}
	return nil
}
