package equipment

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/greenhouse/internal/gpio"
	"go.uber.org/zap"
)

// DefaultSettle is the pause after releasing every relay before a stroke.
const DefaultSettle = time.Second

// WindowConfig describes the wiring and timing of a window actuator.
//
// The classic wiring has one relay per direction. The legacy DC-motor
// wiring uses two per direction (supply and neutral); list both in the
// group and they are energised together.
type WindowConfig struct {
	Open  []gpio.Channel
	Close []gpio.Channel

	// Stroke is the time for a full opening travel.
	Stroke time.Duration
	// CloseStroke is the time for a full closing travel. Zero means Stroke.
	CloseStroke time.Duration
	// Cooldown is the minimum time since the last committed transition
	// before a new stroke may start.
	Cooldown time.Duration
	// Settle is the pause after the defensive release. Zero disables it.
	Settle time.Duration
	// EnforceCooldownOnClose applies Cooldown to closing strokes too.
	EnforceCooldownOnClose bool
}

func (c WindowConfig) validate() error {
	if len(c.Open) == 0 {
		return errors.New("no open relay channel")
	}
	if len(c.Close) == 0 {
		return errors.New("no close relay channel")
	}
	seen := make(map[gpio.Channel]string)
	for _, g := range []struct {
		dir string
		chs []gpio.Channel
	}{{"open", c.Open}, {"close", c.Close}} {
		for _, ch := range g.chs {
			if ch == nil {
				return fmt.Errorf("nil %s relay channel", g.dir)
			}
			if dir, dup := seen[ch]; dup {
				return fmt.Errorf("relay channel used twice (%s and %s)", dir, g.dir)
			}
			seen[ch] = g.dir
		}
	}
	if c.Stroke <= 0 {
		return fmt.Errorf("stroke must be positive, got %v", c.Stroke)
	}
	if c.CloseStroke < 0 {
		return fmt.Errorf("close stroke must not be negative, got %v", c.CloseStroke)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %v", c.Cooldown)
	}
	if c.Settle < 0 {
		return fmt.Errorf("settle must not be negative, got %v", c.Settle)
	}
	return nil
}

// CooldownFormula selects how a duty ratio is turned into a cooldown.
type CooldownFormula string

const (
	// CooldownRest rests for the share of the period the motor may not run:
	// stroke * (1 - ratio).
	CooldownRest CooldownFormula = "rest"
	// CooldownPeriod waits for the whole duty period: stroke / ratio.
	CooldownPeriod CooldownFormula = "period"
)

// Cooldown derives the cooldown for a stroke from a duty ratio in (0, 1].
func Cooldown(stroke time.Duration, dutyRatio float64, formula CooldownFormula) (time.Duration, error) {
	if dutyRatio <= 0 || dutyRatio > 1 {
		return 0, fmt.Errorf("duty ratio must be in (0, 1], got %v", dutyRatio)
	}
	switch formula {
	case CooldownRest:
		return time.Duration(float64(stroke) * (1 - dutyRatio)), nil
	case CooldownPeriod:
		return time.Duration(float64(stroke) / dutyRatio), nil
	default:
		return 0, fmt.Errorf("unknown cooldown formula %q", formula)
	}
}

// window drives a motorised vent through timed strokes.
type window struct {
	cfg   WindowConfig
	all   []gpio.Channel
	now   func() time.Time
	sleep func(time.Duration)
	log   *zap.SugaredLogger
}

// NewWindowActuator returns a window actuator. Every relay is released
// before this returns.
func NewWindowActuator(name string, cfg WindowConfig, opts ...Option) (*Equipment, error) {
	if name == "" {
		return nil, errors.New("window actuator: name must not be empty")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("window actuator %q: %w", name, err)
	}
	if cfg.CloseStroke == 0 {
		cfg.CloseStroke = cfg.Stroke
	}

	o := newOptions(opts)
	w := &window{
		cfg:   cfg,
		all:   append(append([]gpio.Channel{}, cfg.Open...), cfg.Close...),
		now:   o.now,
		sleep: o.sleep,
		log:   o.logger.With("equipment", name),
	}
	if err := w.releaseAll(); err != nil {
		return nil, fmt.Errorf("window actuator %q: %w", name, err)
	}
	return newEquipment(name, w, o), nil
}

func (w *window) TryActivate(lastChange time.Time) (bool, error) {
	return w.stroke("open", w.cfg.Open, w.cfg.Stroke, true, lastChange)
}

func (w *window) TryDeactivate(lastChange time.Time) (bool, error) {
	return w.stroke("close", w.cfg.Close, w.cfg.CloseStroke, w.cfg.EnforceCooldownOnClose, lastChange)
}

// stroke moves the window in one direction. It blocks for the full travel
// time; a started stroke is never interrupted.
func (w *window) stroke(dir string, group []gpio.Channel, travel time.Duration, checkCooldown bool, lastChange time.Time) (bool, error) {
	if err := w.releaseAll(); err != nil {
		return false, err
	}
	w.sleep(w.cfg.Settle)

	if checkCooldown {
		if elapsed := w.now().Sub(lastChange); elapsed < w.cfg.Cooldown {
			w.log.Infow("actuator cooling down, stroke refused",
				"direction", dir, "elapsed", elapsed, "cooldown", w.cfg.Cooldown)
			return false, nil
		}
	}

	w.log.Infow("moving window, waiting for actuator", "direction", dir, "travel", travel)
	for _, ch := range group {
		if err := ch.Set(gpio.High); err != nil {
			return false, w.abort(fmt.Errorf("energise %s relay: %w", dir, err))
		}
	}
	w.sleep(travel)

	if err := w.releaseAll(); err != nil {
		return false, err
	}
	w.log.Infow("window stroke complete", "direction", dir)
	return true, nil
}

// releaseAll releases every channel, attempting all of them even if one
// fails.
func (w *window) releaseAll() error {
	var errs []error
	for _, ch := range w.all {
		if err := ch.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("release relays: %w", errors.Join(errs...))
	}
	return nil
}

func (w *window) abort(cause error) error {
	if err := w.releaseAll(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
