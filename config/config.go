package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scancount/core"
)

// Capture strategy names accepted in the configuration file.
const (
	CaptureEdge     = "edge"
	CaptureSnapshot = "snapshot"
)

// Config represents one deployment: the device geometry shared by the
// firmware and the simulator, plus host-side connection settings.
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Serial SerialConfig `yaml:"serial"`
	Host   HostConfig   `yaml:"host"`
}

// DeviceConfig describes the counting hardware.
type DeviceConfig struct {
	Columns  int       `yaml:"columns"`
	Channels int       `yaml:"channels"`
	Capture  string    `yaml:"capture"` // "edge" or "snapshot"
	Pins     PinConfig `yaml:"pins"`
}

// PinConfig maps the hardware signals to GPIO numbers. Pulse pins are
// only meaningful for the edge strategy (one pin per channel); the
// snapshot strategy counts through hardware counter inputs instead.
type PinConfig struct {
	Step  int   `yaml:"step"`
	Dir   int   `yaml:"dir"`
	Pulse []int `yaml:"pulse"`
}

// SerialConfig contains host-side serial port settings.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// HostConfig contains host-only settings.
type HostConfig struct {
	DBPath string `yaml:"db_path"`
}

// Default returns the configuration for the standard two-channel
// edge-counted scan head.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Columns:  core.DefaultColumns,
			Channels: 2,
			Capture:  CaptureEdge,
			Pins: PinConfig{
				Step:  4,
				Dir:   3,
				Pulse: []int{13, 14},
			},
		},
		Serial: SerialConfig{
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
		Host: HostConfig{
			DBPath: "scans.db",
		},
	}
}

// Load reads a YAML configuration file, filling missing values with
// defaults. A missing file is not an error: the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in values the file left at zero.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Device.Columns == 0 {
		cfg.Device.Columns = def.Device.Columns
	}
	if cfg.Device.Channels == 0 {
		cfg.Device.Channels = def.Device.Channels
	}
	if cfg.Device.Capture == "" {
		cfg.Device.Capture = def.Device.Capture
	}
	if cfg.Serial.Port == "" {
		cfg.Serial.Port = def.Serial.Port
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = def.Serial.Baud
	}
	if cfg.Host.DBPath == "" {
		cfg.Host.DBPath = def.Host.DBPath
	}
}

// Validate checks the configuration for values the engine or the target
// wiring would reject later.
func (c *Config) Validate() error {
	if c.Device.Columns < 1 {
		return errors.New("device.columns must be positive")
	}
	if c.Device.Channels < 1 || c.Device.Channels > core.MaxChannels {
		return fmt.Errorf("device.channels must be 1..%d", core.MaxChannels)
	}
	switch c.Device.Capture {
	case CaptureEdge:
		if len(c.Device.Pins.Pulse) > 0 && len(c.Device.Pins.Pulse) < c.Device.Channels {
			return fmt.Errorf("device.pins.pulse needs %d pins for %d channels",
				c.Device.Channels, c.Device.Channels)
		}
	case CaptureSnapshot:
		// Counter inputs are fixed by the target's counter bank wiring
	default:
		return fmt.Errorf("device.capture must be %q or %q", CaptureEdge, CaptureSnapshot)
	}
	return nil
}

// Strategy maps the configured capture name to the engine strategy.
// Call after Validate.
func (c *Config) Strategy() core.Strategy {
	if c.Device.Capture == CaptureSnapshot {
		return core.StrategySnapshot
	}
	return core.StrategyEdge
}
