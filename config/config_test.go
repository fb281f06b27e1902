package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scancount/core"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, core.DefaultColumns, cfg.Device.Columns)
	assert.Equal(t, 2, cfg.Device.Channels)
	assert.Equal(t, CaptureEdge, cfg.Device.Capture)
	assert.Equal(t, []int{13, 14}, cfg.Device.Pins.Pulse)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "scans.db", cfg.Host.DBPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "scancount_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
device:
  columns: 4000
  channels: 3
  capture: snapshot
  pins:
    step: 2
    dir: 5

serial:
  port: "COM7"

host:
  db_path: "/tmp/scans.db"
`
	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Device.Columns)
	assert.Equal(t, 3, cfg.Device.Channels)
	assert.Equal(t, core.StrategySnapshot, cfg.Strategy())
	assert.Equal(t, 2, cfg.Device.Pins.Step)
	assert.Equal(t, 5, cfg.Device.Pins.Dir)
	assert.Equal(t, "COM7", cfg.Serial.Port)
	// Unset values keep their defaults
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "/tmp/scans.db", cfg.Host.DBPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "scancount_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("device: [not a mapping")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	_, err = Load(tmpfile.Name())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"zero columns", func(c *Config) { c.Device.Columns = -5 }, false},
		{"too many channels", func(c *Config) { c.Device.Channels = core.MaxChannels + 1 }, false},
		{"bad capture", func(c *Config) { c.Device.Capture = "oscilloscope" }, false},
		{"snapshot without pulse pins", func(c *Config) {
			c.Device.Capture = CaptureSnapshot
			c.Device.Pins.Pulse = nil
		}, true},
		{"edge with too few pulse pins", func(c *Config) {
			c.Device.Channels = 3
			c.Device.Pins.Pulse = []int{13, 14}
		}, false},
	}

	for _, test := range tests {
		cfg := Default()
		test.mutate(cfg)
		err := cfg.Validate()
		if test.valid {
			assert.NoError(t, err, test.name)
		} else {
			assert.Error(t, err, test.name)
		}
	}
}

func TestStrategy(t *testing.T) {
	cfg := Default()
	assert.Equal(t, core.StrategyEdge, cfg.Strategy())
	cfg.Device.Capture = CaptureSnapshot
	assert.Equal(t, core.StrategySnapshot, cfg.Strategy())
}
