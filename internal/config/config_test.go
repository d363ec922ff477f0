package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/access-logger/internal/accesslog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "access_data.csv", cfg.Log.Path)
	assert.Equal(t, accesslog.FormatCompact, cfg.Log.Format)
	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.Equal(t, 15*time.Minute, cfg.HeartbeatInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Buttons.Debounce)
	assert.Equal(t, SensorSimulated, cfg.Sensor.Source)
	assert.False(t, cfg.MQTT.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  path: /var/lib/access/log.csv
  format: Timestamped
sample_ms: 500
heartbeat_ms: 0
buttons:
  pin_a: 5
  pin_b: 6
  pin_c: 13
  debounce_ms: 20
sensor:
  source: mqtt
  topic: lab/bme680
mqtt:
  enabled: true
  broker: tcp://10.0.0.2:1883
http:
  addr: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/access/log.csv", cfg.Log.Path)
	assert.Equal(t, accesslog.FormatTimestamped, cfg.Log.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, time.Duration(0), cfg.HeartbeatInterval)
	assert.Equal(t, 5, cfg.Buttons.Pins().A)
	assert.Equal(t, 13, cfg.Buttons.Pins().C)
	assert.Equal(t, 20*time.Millisecond, cfg.Buttons.Debounce)
	assert.Equal(t, "gpiochip0", cfg.Buttons.Chip, "unset keys keep defaults")
	assert.Equal(t, SensorMQTT, cfg.Sensor.Source)
	assert.Equal(t, "lab/bme680", cfg.Sensor.Topic)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "access-logger", cfg.MQTT.ClientID)
	assert.Empty(t, cfg.HTTP.Addr)
}

func TestLoadInvalidSampleFallsBack(t *testing.T) {
	cfg, err := Load(writeConfig(t, "sample_ms: -5\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SampleInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "sample_msec: 100\n"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown format", "log:\n  format: binary\n"},
		{"empty path", "log:\n  path: \"\"\n"},
		{"duplicate pins", "buttons:\n  pin_a: 4\n  pin_b: 4\n"},
		{"unknown sensor", "sensor:\n  source: bme680\n"},
		{"mqtt sensor without topic", "sensor:\n  source: mqtt\n  topic: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
