// Package equipment drives the greenhouse actuators.
//
// Every device shares one two-phase lifecycle: a transition is attempted by
// the device-specific hook and is then either committed or reverted. Only a
// commit moves LastChange, so a refused attempt never resets a cooldown.
// Refusals are expected outcomes and are reported as (false, nil); a relay
// that cannot be driven is reported as a *FaultError.
package equipment

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle state of a piece of equipment.
type State int

const (
	StateUnknown State = iota
	StateActivating
	StateActivated
	StateDeactivating
	StateDeactivated
)

func (s State) String() string {
	switch s {
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateDeactivating:
		return "deactivating"
	case StateDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// Device performs the physical side of a transition.
// Both hooks receive the time of the last committed transition and report
// whether the transition happened. A false result with a nil error is a
// refusal; the hook must leave the hardware at rest in that case.
type Device interface {
	TryActivate(lastChange time.Time) (bool, error)
	TryDeactivate(lastChange time.Time) (bool, error)
}

// hooks adapts a pair of functions to Device.
type hooks struct {
	activate   func(time.Time) (bool, error)
	deactivate func(time.Time) (bool, error)
}

func (h hooks) TryActivate(lastChange time.Time) (bool, error) { return h.activate(lastChange) }

func (h hooks) TryDeactivate(lastChange time.Time) (bool, error) { return h.deactivate(lastChange) }

// Controllable is the surface the control loop and composites rely on.
type Controllable interface {
	Name() string
	State() State
	Activate() (bool, error)
	Deactivate() (bool, error)
	// ForceDeactivate runs the deactivation even if the bookkeeping says the
	// equipment is already deactivated.
	ForceDeactivate() (bool, error)
}

// FaultError reports a relay driver failure during a transition.
type FaultError struct {
	Equipment string
	Op        string
	Err       error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Equipment, e.Op, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// IsFault reports whether err carries a driver fault.
func IsFault(err error) bool {
	var f *FaultError
	return errors.As(err, &f)
}

// Option configures equipment at construction time.
type Option func(*options)

type options struct {
	now    func() time.Time
	sleep  func(time.Duration)
	logger *zap.SugaredLogger
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		sleep:  time.Sleep,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the wall clock and the blocking sleep used for strokes.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithLogger sets the logger used for transition messages.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Equipment is the shared state machine wrapped around a Device.
type Equipment struct {
	name   string
	device Device
	now    func() time.Time
	log    *zap.SugaredLogger

	// settled, if set, must also agree before a request for the current
	// state is skipped. Composites use it to check their children.
	settled func(State) bool

	// op serialises transitions; a stroke holds it for its whole duration.
	op sync.Mutex

	mu         sync.RWMutex
	state      State
	lastChange time.Time
}

// New wraps device in the lifecycle state machine.
func New(name string, device Device, opts ...Option) (*Equipment, error) {
	if name == "" {
		return nil, errors.New("equipment name must not be empty")
	}
	if device == nil {
		return nil, fmt.Errorf("%s: device must not be nil", name)
	}
	o := newOptions(opts)
	return newEquipment(name, device, o), nil
}

func newEquipment(name string, device Device, o options) *Equipment {
	return &Equipment{
		name:   name,
		device: device,
		now:    o.now,
		log:    o.logger.With("equipment", name),
	}
}

// Name returns the name given at construction.
func (e *Equipment) Name() string {
	return e.name
}

// State returns the current state. During a running transition this is the
// transient Activating or Deactivating value.
func (e *Equipment) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// LastChange returns the time of the last committed transition.
func (e *Equipment) LastChange() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastChange
}

// Activate turns the equipment on. It is a no-op returning true when the
// equipment is already activated.
func (e *Equipment) Activate() (bool, error) {
	return e.transition(StateActivated, StateActivating, "activate", false, e.device.TryActivate)
}

// Deactivate turns the equipment off. It is a no-op returning true when the
// equipment is already deactivated, which makes it safe for emergency use.
func (e *Equipment) Deactivate() (bool, error) {
	return e.transition(StateDeactivated, StateDeactivating, "deactivate", false, e.device.TryDeactivate)
}

// ForceDeactivate runs the deactivation hook regardless of the current state.
func (e *Equipment) ForceDeactivate() (bool, error) {
	return e.transition(StateDeactivated, StateDeactivating, "force deactivate", true, e.device.TryDeactivate)
}

// transition runs hook between the pending and target states. On refusal or
// fault the state reverts to the value it had before the attempt.
func (e *Equipment) transition(target, pending State, op string, force bool, hook func(time.Time) (bool, error)) (bool, error) {
	e.op.Lock()
	defer e.op.Unlock()

	e.mu.Lock()
	prev, last := e.state, e.lastChange
	if prev == target && !force && (e.settled == nil || e.settled(target)) {
		e.mu.Unlock()
		e.log.Debugw("already in requested state", "state", target)
		return true, nil
	}
	e.state = pending
	e.mu.Unlock()

	e.log.Debugw("transition started", "op", op, "from", prev)
	ok, err := hook(last)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.state = prev
		var fault *FaultError
		if !errors.As(err, &fault) {
			err = &FaultError{Equipment: e.name, Op: op, Err: err}
		}
		e.log.Errorw("transition failed", "op", op, "state", prev, "err", err)
		return false, err
	}
	if !ok {
		e.state = prev
		e.log.Infow("transition refused", "op", op, "state", prev)
		return false, nil
	}

	e.state = target
	e.lastChange = e.now()
	e.log.Infow("transition committed", "op", op, "state", target)
	return true, nil
}
