// Package config loads and validates the daemon configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/greenhouse/internal/equipment"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logger"
	"github.com/sweeney/greenhouse/internal/logic"
)

// Config is the complete daemon configuration.
type Config struct {
	LogLevel          string        `mapstructure:"log_level"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	SensorMaxDowntime time.Duration `mapstructure:"sensor_max_downtime"`
	GPIOChip          string        `mapstructure:"gpio_chip"`
	ActiveLow         bool          `mapstructure:"active_low"`
	Thresholds        Thresholds    `mapstructure:"thresholds"`
	ControlSensor     string        `mapstructure:"control_sensor"`
	Sensors           []Sensor      `mapstructure:"sensors"`
	Fan               Fan           `mapstructure:"fan"`
	Window            Window        `mapstructure:"window"`
	Ventilation       Ventilation   `mapstructure:"ventilation"`
	CloseOnExit       bool          `mapstructure:"close_on_exit"`
}

// Thresholds is the hysteresis band in °C.
type Thresholds struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high"`
}

// Band converts the thresholds for the control logic.
func (t Thresholds) Band() logic.Band {
	return logic.Band{Low: t.Low, High: t.High}
}

// Sensor is a climate sensor and its IIO device directory.
type Sensor struct {
	Location string `mapstructure:"location"`
	Device   string `mapstructure:"device"`
}

// Fan is a fan on a single relay.
type Fan struct {
	Name string `mapstructure:"name"`
	Pin  int    `mapstructure:"pin"`
}

// Window is a window actuator. Two pins per direction selects the legacy
// supply+neutral wiring. Cooldown is nil unless the file sets it; a nil
// cooldown is derived from DutyRatio and CooldownFormula, while an explicit
// zero disables it. Cooldown has no default, so it cannot be set from the
// environment.
type Window struct {
	Name                   string         `mapstructure:"name"`
	OpenPins               []int          `mapstructure:"open_pins"`
	ClosePins              []int          `mapstructure:"close_pins"`
	Stroke                 time.Duration  `mapstructure:"stroke"`
	CloseStroke            time.Duration  `mapstructure:"close_stroke"`
	Settle                 time.Duration  `mapstructure:"settle"`
	Cooldown               *time.Duration `mapstructure:"cooldown"`
	DutyRatio              float64        `mapstructure:"duty_ratio"`
	CooldownFormula        string         `mapstructure:"cooldown_formula"`
	EnforceCooldownOnClose bool           `mapstructure:"enforce_cooldown_on_close"`
}

// EffectiveCooldown returns Cooldown if set, else derives it from the duty
// ratio and formula.
func (w Window) EffectiveCooldown() (time.Duration, error) {
	if w.Cooldown != nil {
		return *w.Cooldown, nil
	}
	return equipment.Cooldown(w.Stroke, w.DutyRatio, equipment.CooldownFormula(w.CooldownFormula))
}

// Ventilation names the composite of the fan and the window.
type Ventilation struct {
	Name string `mapstructure:"name"`
}

// Defaults is the configuration of the classic single-greenhouse install.
var Defaults = map[string]any{
	"log_level":                        "info",
	"poll_interval":                    10 * time.Second,
	"sensor_max_downtime":              2 * time.Minute,
	"gpio_chip":                        gpio.DefaultChip,
	"active_low":                       false,
	"thresholds.low":                   logic.DefaultBand.Low,
	"thresholds.high":                  logic.DefaultBand.High,
	"control_sensor":                   "front",
	"sensors":                          []map[string]any{{"location": "front", "device": "/sys/bus/iio/devices/iio:device0"}},
	"fan.name":                         "Fan 1",
	"fan.pin":                          gpio.DefaultPinFan,
	"window.name":                      "Window 1",
	"window.open_pins":                 []int{gpio.DefaultPinOpenVDC, gpio.DefaultPinOpenNeutral},
	"window.close_pins":                []int{gpio.DefaultPinCloseVDC, gpio.DefaultPinCloseNeutral},
	"window.stroke":                    30 * time.Second,
	"window.close_stroke":              time.Duration(0),
	"window.settle":                    equipment.DefaultSettle,
	"window.duty_ratio":                0.75,
	"window.cooldown_formula":          string(equipment.CooldownRest),
	"window.enforce_cooldown_on_close": true,
	"ventilation.name":                 "Ventilation system 1",
	"close_on_exit":                    true,
}

// SetDefaults registers Defaults with v.
func SetDefaults(v *viper.Viper) {
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
// All problems are reported together.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, a ...any) { errs = append(errs, fmt.Errorf(format, a...)) }

	if _, ok := logger.ParseLogLevel(c.LogLevel); !ok {
		add("unknown log_level %q", c.LogLevel)
	}
	if c.PollInterval <= 0 {
		add("poll_interval must be positive")
	}
	if c.SensorMaxDowntime <= 0 {
		add("sensor_max_downtime must be positive")
	}
	if c.GPIOChip == "" {
		add("gpio_chip must not be empty")
	}
	if err := c.Thresholds.Band().Validate(); err != nil {
		add("thresholds: %w", err)
	}

	locations := make(map[string]bool)
	for i, s := range c.Sensors {
		if s.Location == "" || s.Device == "" {
			add("sensors[%d]: location and device are required", i)
			continue
		}
		if locations[s.Location] {
			add("sensors[%d]: duplicate location %q", i, s.Location)
		}
		locations[s.Location] = true
	}
	if len(c.Sensors) == 0 {
		add("at least one sensor is required")
	} else if !locations[c.ControlSensor] {
		add("control_sensor %q is not a configured sensor", c.ControlSensor)
	}

	if c.Fan.Name == "" {
		add("fan.name must not be empty")
	}
	if c.Window.Name == "" {
		add("window.name must not be empty")
	}
	if c.Ventilation.Name == "" {
		add("ventilation.name must not be empty")
	}
	if len(c.Window.OpenPins) == 0 || len(c.Window.ClosePins) == 0 {
		add("window needs at least one open and one close pin")
	}
	pins := make(map[int]string)
	claim := func(owner string, pin int) {
		if pin < 0 {
			add("%s: negative pin %d", owner, pin)
			return
		}
		if prev, dup := pins[pin]; dup {
			add("pin %d used by both %s and %s", pin, prev, owner)
			return
		}
		pins[pin] = owner
	}
	claim("fan.pin", c.Fan.Pin)
	for _, p := range c.Window.OpenPins {
		claim("window.open_pins", p)
	}
	for _, p := range c.Window.ClosePins {
		claim("window.close_pins", p)
	}

	if c.Window.Stroke <= 0 {
		add("window.stroke must be positive")
	}
	if c.Window.CloseStroke < 0 || c.Window.Settle < 0 ||
		(c.Window.Cooldown != nil && *c.Window.Cooldown < 0) {
		add("window durations must not be negative")
	}
	if c.Window.Stroke > 0 {
		if _, err := c.Window.EffectiveCooldown(); err != nil {
			add("window cooldown: %w", err)
		}
	}

	return errors.Join(errs...)
}

// Dump writes the configuration as YAML, durations in Go notation.
func (c Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.view()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

type sensorView struct {
	Location string `yaml:"location"`
	Device   string `yaml:"device"`
}

type windowView struct {
	Name                   string  `yaml:"name"`
	OpenPins               []int   `yaml:"open_pins,flow"`
	ClosePins              []int   `yaml:"close_pins,flow"`
	Stroke                 string  `yaml:"stroke"`
	CloseStroke            string  `yaml:"close_stroke"`
	Settle                 string  `yaml:"settle"`
	Cooldown               string  `yaml:"cooldown,omitempty"`
	DutyRatio              float64 `yaml:"duty_ratio"`
	CooldownFormula        string  `yaml:"cooldown_formula"`
	EnforceCooldownOnClose bool    `yaml:"enforce_cooldown_on_close"`
}

type configView struct {
	LogLevel          string             `yaml:"log_level"`
	PollInterval      string             `yaml:"poll_interval"`
	SensorMaxDowntime string             `yaml:"sensor_max_downtime"`
	GPIOChip          string             `yaml:"gpio_chip"`
	ActiveLow         bool               `yaml:"active_low"`
	Thresholds        map[string]float64 `yaml:"thresholds"`
	ControlSensor     string             `yaml:"control_sensor"`
	Sensors           []sensorView       `yaml:"sensors"`
	Fan               map[string]any     `yaml:"fan"`
	Window            windowView         `yaml:"window"`
	Ventilation       map[string]string  `yaml:"ventilation"`
	CloseOnExit       bool               `yaml:"close_on_exit"`
}

func (c Config) view() configView {
	v := configView{
		LogLevel:          c.LogLevel,
		PollInterval:      c.PollInterval.String(),
		SensorMaxDowntime: c.SensorMaxDowntime.String(),
		GPIOChip:          c.GPIOChip,
		ActiveLow:         c.ActiveLow,
		Thresholds:        map[string]float64{"low": c.Thresholds.Low, "high": c.Thresholds.High},
		ControlSensor:     c.ControlSensor,
		Fan:               map[string]any{"name": c.Fan.Name, "pin": c.Fan.Pin},
		Window: windowView{
			Name:                   c.Window.Name,
			OpenPins:               c.Window.OpenPins,
			ClosePins:              c.Window.ClosePins,
			Stroke:                 c.Window.Stroke.String(),
			CloseStroke:            c.Window.CloseStroke.String(),
			Settle:                 c.Window.Settle.String(),
			DutyRatio:              c.Window.DutyRatio,
			CooldownFormula:        c.Window.CooldownFormula,
			EnforceCooldownOnClose: c.Window.EnforceCooldownOnClose,
		},
		Ventilation: map[string]string{"name": c.Ventilation.Name},
		CloseOnExit: c.CloseOnExit,
	}
	if c.Window.Cooldown != nil {
		v.Window.Cooldown = c.Window.Cooldown.String()
	}
	for _, s := range c.Sensors {
		v.Sensors = append(v.Sensors, sensorView(s))
	}
	return v
}
