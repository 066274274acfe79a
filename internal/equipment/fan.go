package equipment

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/greenhouse/internal/gpio"
	"go.uber.org/zap"
)

// fan switches a single relay and has no timing constraint.
type fan struct {
	relay gpio.Channel
	log   *zap.SugaredLogger
}

// NewFan returns a fan driven by relay.
func NewFan(name string, relay gpio.Channel, opts ...Option) (*Equipment, error) {
	if name == "" {
		return nil, errors.New("fan: name must not be empty")
	}
	if relay == nil {
		return nil, fmt.Errorf("fan %q: relay channel must not be nil", name)
	}
	o := newOptions(opts)
	f := &fan{relay: relay, log: o.logger.With("equipment", name)}
	return newEquipment(name, f, o), nil
}

func (f *fan) TryActivate(time.Time) (bool, error) {
	f.log.Info("powering on fan")
	if err := f.relay.Set(gpio.High); err != nil {
		return false, fmt.Errorf("energise fan relay: %w", err)
	}
	return true, nil
}

func (f *fan) TryDeactivate(time.Time) (bool, error) {
	f.log.Info("powering off fan")
	if err := f.relay.Release(); err != nil {
		return false, fmt.Errorf("release fan relay: %w", err)
	}
	return true, nil
}
