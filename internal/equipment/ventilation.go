package equipment

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Ventilation sequences a window and a fan. The window opens before the fan
// starts and the fan stops before the window closes, so the fan never runs
// against a sealed enclosure.
type Ventilation struct {
	*Equipment

	fan    Controllable
	window Controllable
	log    *zap.SugaredLogger
}

// NewVentilation returns a ventilation system that owns fan and window.
func NewVentilation(name string, fan, window Controllable, opts ...Option) (*Ventilation, error) {
	if name == "" {
		return nil, errors.New("ventilation: name must not be empty")
	}
	if fan == nil || window == nil {
		return nil, fmt.Errorf("ventilation %q: fan and window are required", name)
	}
	o := newOptions(opts)
	v := &Ventilation{
		fan:    fan,
		window: window,
		log:    o.logger.With("equipment", name),
	}
	v.Equipment = newEquipment(name, hooks{v.activate, v.deactivate}, o)
	v.Equipment.settled = v.childrenIn
	return v, nil
}

// childrenIn reports whether fan and window are both in state. A partial
// failure can leave one child behind the system, so a repeated request is
// only skipped when both agree.
func (v *Ventilation) childrenIn(state State) bool {
	return v.fan.State() == state && v.window.State() == state
}

// Fan returns the fan this system owns.
func (v *Ventilation) Fan() Controllable { return v.fan }

// Window returns the window actuator this system owns.
func (v *Ventilation) Window() Controllable { return v.window }

// activate opens the window, then starts the fan. If the window refuses
// the fan is never started. If the fan fails the window is closed again,
// which its cooldown may refuse; the next request then retries.
func (v *Ventilation) activate(time.Time) (bool, error) {
	v.log.Info("activating ventilation")
	if ok, err := v.window.Activate(); !ok || err != nil {
		return false, err
	}
	if ok, err := v.fan.Activate(); !ok || err != nil {
		v.rollbackWindow()
		return false, err
	}
	v.log.Info("ventilation activated")
	return true, nil
}

func (v *Ventilation) rollbackWindow() {
	ok, err := v.window.Deactivate()
	switch {
	case err != nil:
		v.log.Errorw("closing window after fan failure", "err", err)
	case !ok:
		v.log.Warnw("window left open after fan failure", "window", v.window.State())
	default:
		v.log.Info("window closed after fan failure")
	}
}

// deactivate stops the fan, then closes the window. If the fan fails the
// window is left open.
func (v *Ventilation) deactivate(time.Time) (bool, error) {
	v.log.Info("deactivating ventilation")
	if ok, err := v.fan.Deactivate(); !ok || err != nil {
		return false, err
	}
	if ok, err := v.window.Deactivate(); !ok || err != nil {
		return false, err
	}
	v.log.Info("ventilation deactivated")
	return true, nil
}

// ForceDeactivate stops the fan and closes the window without trusting any
// bookkeeping, on the system or on either child.
func (v *Ventilation) ForceDeactivate() (bool, error) {
	return v.Equipment.transition(StateDeactivated, StateDeactivating, "close up", true, func(time.Time) (bool, error) {
		v.log.Info("closing up ventilation")
		if ok, err := v.fan.ForceDeactivate(); !ok || err != nil {
			return false, err
		}
		return v.window.ForceDeactivate()
	})
}

// CloseUp brings the system to a known resting state. It is meant to run
// once at startup, before the state of the hardware is known.
func (v *Ventilation) CloseUp() (bool, error) {
	return v.ForceDeactivate()
}
