package main

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse/internal/equipment"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/sensor"
	"github.com/sweeney/greenhouse/internal/status"
)

// controller is everything the control loop reads and drives.
type controller struct {
	ventilation equipment.Controllable
	// systems are shut down together when a sensor goes stale.
	systems     []equipment.Controllable
	sensors     []sensor.Sensor
	watchdog    *status.Watchdog
	band        *atomic.Pointer[logic.Band]
	control     string
	closeOnExit bool
	log         *zap.SugaredLogger
}

func runLoop(ctx context.Context, c *controller, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var vals map[string]sensor.Reading

	for {
		select {
		case s := <-sig:
			c.log.Infow("shutting down", "signal", s)
			if c.closeOnExit {
				c.deactivateAll()
			}
			return nil

		case <-ctx.Done():
			c.log.Infow("shutting down", "err", ctx.Err())
			if c.closeOnExit {
				c.deactivateAll()
			}
			return nil

		case <-tick:
			t := now()
			vals = sensor.ReadAll(ctx, c.sensors, vals, c.watchdog, func() time.Time { return t })
			c.log.Debugw("sensor values", "values", vals)

			r, have := vals[c.control]
			d := logic.Plan(*c.band.Load(), logic.Input{
				Temperature: r.Temperature,
				HaveReading: have,
				Stale:       c.watchdog.Stale(t),
			})
			c.apply(d)
			c.record()
		}
	}
}

func (c *controller) apply(d logic.Decision) {
	switch d.Action {
	case logic.ActionActivate:
		c.log.Infow("too hot, ventilating", "reason", d.Reason)
		c.report(c.ventilation, "activate", c.ventilation.Activate)
	case logic.ActionDeactivate:
		if d.Emergency {
			c.log.Errorw("deactivating all systems", "reason", d.Reason)
			c.deactivateAll()
			return
		}
		c.log.Infow("too cold, closing up", "reason", d.Reason)
		c.report(c.ventilation, "deactivate", c.ventilation.Deactivate)
	default:
		c.log.Debugw("holding", "reason", d.Reason, "state", c.ventilation.State())
	}
}

func (c *controller) deactivateAll() {
	for _, sys := range c.systems {
		c.report(sys, "deactivate", sys.Deactivate)
	}
}

func (c *controller) report(eq equipment.Controllable, op string, fn func() (bool, error)) {
	ok, err := fn()
	switch {
	case equipment.IsFault(err):
		c.log.Errorw("relay fault", "equipment", eq.Name(), "op", op, "err", err)
	case err != nil:
		c.log.Errorw("transition failed", "equipment", eq.Name(), "op", op, "err", err)
	case !ok:
		c.log.Warnw("transition refused", "equipment", eq.Name(), "op", op, "state", eq.State())
	}
}

func (c *controller) record() {
	for _, sys := range c.systems {
		c.watchdog.SetEquipment(sys.Name(), sys.State().String())
	}
}
