package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/equipment"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logger"
	"github.com/sweeney/greenhouse/internal/sensor"
)

// closer is the part of the ventilation the startup close-up needs.
type closer interface {
	CloseUp() (bool, error)
	State() equipment.State
}

// relayOpener returns the relay on a BCM pin.
type relayOpener func(pin int) (gpio.Channel, error)

func chipOpener(chip *gpio.Chip, activeLow bool) relayOpener {
	return func(pin int) (gpio.Channel, error) {
		r, err := chip.Relay(pin, activeLow)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// system is the equipment built from the configuration.
type system struct {
	fan         *equipment.Equipment
	window      *equipment.Equipment
	ventilation *equipment.Ventilation
}

// all lists every top-level system for emergency shutdown.
func (s *system) all() []equipment.Controllable {
	return []equipment.Controllable{s.ventilation}
}

func buildSystem(open relayOpener, cfg config.Config, log *zap.SugaredLogger, opts ...equipment.Option) (*system, error) {
	opts = append([]equipment.Option{equipment.WithLogger(log)}, opts...)

	fanRelay, err := open(cfg.Fan.Pin)
	if err != nil {
		return nil, fmt.Errorf("fan relay: %w", err)
	}
	fan, err := equipment.NewFan(cfg.Fan.Name, fanRelay, opts...)
	if err != nil {
		return nil, err
	}

	openGroup, err := openAll(open, cfg.Window.OpenPins)
	if err != nil {
		return nil, fmt.Errorf("window open relays: %w", err)
	}
	closeGroup, err := openAll(open, cfg.Window.ClosePins)
	if err != nil {
		return nil, fmt.Errorf("window close relays: %w", err)
	}
	cooldown, err := cfg.Window.EffectiveCooldown()
	if err != nil {
		return nil, err
	}
	window, err := equipment.NewWindowActuator(cfg.Window.Name, equipment.WindowConfig{
		Open:                   openGroup,
		Close:                  closeGroup,
		Stroke:                 cfg.Window.Stroke,
		CloseStroke:            cfg.Window.CloseStroke,
		Cooldown:               cooldown,
		Settle:                 cfg.Window.Settle,
		EnforceCooldownOnClose: cfg.Window.EnforceCooldownOnClose,
	}, opts...)
	if err != nil {
		return nil, err
	}

	ventilation, err := equipment.NewVentilation(cfg.Ventilation.Name, fan, window, opts...)
	if err != nil {
		return nil, err
	}
	log.Infow("equipment ready",
		"fan", cfg.Fan.Name, "window", cfg.Window.Name, "cooldown", cooldown,
		"legacy_wiring", len(openGroup) > 1)
	return &system{fan: fan, window: window, ventilation: ventilation}, nil
}

func openAll(open relayOpener, pins []int) ([]gpio.Channel, error) {
	chs := make([]gpio.Channel, 0, len(pins))
	for _, pin := range pins {
		ch, err := open(pin)
		if err != nil {
			return nil, fmt.Errorf("pin %d: %w", pin, err)
		}
		chs = append(chs, ch)
	}
	return chs, nil
}

func buildSensors(cfg config.Config, log *zap.SugaredLogger) []sensor.Sensor {
	sensors := make([]sensor.Sensor, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		sensors = append(sensors, sensor.NewIIO(s.Location, s.Device, sensor.WithLogger(log)))
	}
	return sensors
}

func locations(sensors []sensor.Sensor) []string {
	out := make([]string, len(sensors))
	for i, s := range sensors {
		out[i] = s.Location()
	}
	return out
}

func newLogger(cfg config.Config) *zap.SugaredLogger {
	return newLeveledLogger(cfg, zap.NewAtomicLevel())
}

func newLeveledLogger(cfg config.Config, level zap.AtomicLevel) *zap.SugaredLogger {
	lvl, _ := logger.ParseLogLevel(cfg.LogLevel)
	level.SetLevel(lvl)
	return logger.New(level, zapcore.Lock(os.Stderr))
}

// closeChip releases the relays. A failure leaves lines requested, so it is
// logged rather than dropped.
func closeChip(c io.Closer, log *zap.SugaredLogger) {
	if err := c.Close(); err != nil {
		log.Errorw("close gpio", "err", err)
	}
}
