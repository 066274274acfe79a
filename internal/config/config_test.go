package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func load(t *testing.T, doc string) (Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if doc != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	}
	return Load(v)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.SensorMaxDowntime)
	assert.Equal(t, "gpiochip0", cfg.GPIOChip)
	assert.Equal(t, 24.0, cfg.Thresholds.Low)
	assert.Equal(t, 27.0, cfg.Thresholds.High)
	assert.Equal(t, []Sensor{{Location: "front", Device: "/sys/bus/iio/devices/iio:device0"}}, cfg.Sensors)
	assert.Equal(t, Fan{Name: "Fan 1", Pin: 26}, cfg.Fan)
	assert.Equal(t, []int{27, 17}, cfg.Window.OpenPins)
	assert.Equal(t, []int{24, 22}, cfg.Window.ClosePins)
	assert.Equal(t, 30*time.Second, cfg.Window.Stroke)
	assert.Equal(t, time.Second, cfg.Window.Settle)
	assert.True(t, cfg.Window.EnforceCooldownOnClose)
	assert.True(t, cfg.CloseOnExit)

	cooldown, err := cfg.Window.EffectiveCooldown()
	require.NoError(t, err)
	assert.Equal(t, 7500*time.Millisecond, cooldown)
	assert.Nil(t, cfg.Window.Cooldown)
}

func TestLoadFile(t *testing.T) {
	cfg, err := load(t, `
log_level: debug
poll_interval: 5s
thresholds:
  low: 20
  high: 30.5
control_sensor: back
sensors:
  - location: back
    device: /sys/bus/iio/devices/iio:device1
  - location: front
    device: /sys/bus/iio/devices/iio:device0
fan:
  pin: 5
window:
  open_pins: [6]
  close_pins: [13]
  stroke: 20s
  close_stroke: 30s
  cooldown: 1m
  enforce_cooldown_on_close: false
`)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30.5, cfg.Thresholds.High)
	assert.Equal(t, "back", cfg.ControlSensor)
	assert.Len(t, cfg.Sensors, 2)
	assert.Equal(t, "Fan 1", cfg.Fan.Name, "unset keys keep their default")
	assert.Equal(t, 5, cfg.Fan.Pin)
	assert.Equal(t, []int{6}, cfg.Window.OpenPins)
	assert.Equal(t, 30*time.Second, cfg.Window.CloseStroke)
	assert.False(t, cfg.Window.EnforceCooldownOnClose)

	cooldown, err := cfg.Window.EffectiveCooldown()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cooldown, "explicit cooldown wins over the duty ratio")
}

func TestExplicitZeroCooldown(t *testing.T) {
	cfg, err := load(t, "window:\n  cooldown: 0s\n")
	require.NoError(t, err)
	require.NotNil(t, cfg.Window.Cooldown)

	cooldown, err := cfg.Window.EffectiveCooldown()
	require.NoError(t, err)
	assert.Zero(t, cooldown, "an explicit zero is not replaced by the duty ratio")

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))
	assert.Contains(t, buf.String(), "cooldown: 0s")
	again, err := load(t, buf.String())
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestPeriodFormula(t *testing.T) {
	cfg, err := load(t, "window:\n  cooldown_formula: period\n")
	require.NoError(t, err)
	cooldown, err := cfg.Window.EffectiveCooldown()
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, cooldown)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"log level", "log_level: loud", "log_level"},
		{"poll interval", "poll_interval: 0s", "poll_interval"},
		{"inverted band", "thresholds: {low: 30, high: 20}", "thresholds"},
		{"control sensor", "control_sensor: roof", "control_sensor"},
		{"duplicate sensor", "sensors: [{location: a, device: x}, {location: a, device: y}]\ncontrol_sensor: a", "duplicate location"},
		{"sensor without device", "sensors: [{location: a}]\ncontrol_sensor: a", "sensors[0]"},
		{"shared pin", "fan: {pin: 27}", "pin 27"},
		{"open and close share a pin", "window: {open_pins: [5], close_pins: [5]}", "pin 5"},
		{"negative pin", "fan: {pin: -1}", "negative pin"},
		{"no close pin", "window: {close_pins: []}", "close pin"},
		{"zero stroke", "window: {stroke: 0s}", "window.stroke"},
		{"duty ratio", "window: {duty_ratio: 1.5}", "duty ratio"},
		{"formula", "window: {cooldown_formula: linear}", "cooldown formula"},
		{"negative settle", "window: {settle: -1s}", "negative"},
		{"negative cooldown", "window: {cooldown: -1s}", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	_, err := load(t, "poll_interval: 0s\nlog_level: loud\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
	assert.Contains(t, err.Error(), "log_level")
}

func TestDump(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, "poll_interval: 10s")
	assert.Contains(t, out, "stroke: 30s")
	assert.Contains(t, out, "open_pins: [27, 17]")
	assert.Contains(t, out, "control_sensor: front")

	// The dump is itself a loadable config.
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))
	again, err := load(t, out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
