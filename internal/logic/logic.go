// Package logic contains the pure climate control decisions.
// This package has NO external dependencies (no GPIO, sensors, OS, or time.Sleep).
// Readings and sensor health are always passed in.
package logic

import (
	"fmt"
	"strings"
)

// Action is what the control loop should ask of the ventilation.
type Action string

const (
	ActionHold       Action = "HOLD"
	ActionActivate   Action = "ACTIVATE"
	ActionDeactivate Action = "DEACTIVATE"
)

// Band is the hysteresis band for the control temperature in °C.
// Above High is too hot; at or below Low is too cold.
type Band struct {
	Low  float64
	High float64
}

// DefaultBand matches the greenhouse the controller was written for.
var DefaultBand = Band{Low: 24, High: 27}

// Validate reports an empty or inverted band.
func (b Band) Validate() error {
	if b.Low >= b.High {
		return fmt.Errorf("band low (%v) must be below high (%v)", b.Low, b.High)
	}
	return nil
}

// TooHot reports whether temp calls for ventilation.
func (b Band) TooHot(temp float64) bool {
	return temp > b.High
}

// TooCold reports whether temp calls for closing up.
func (b Band) TooCold(temp float64) bool {
	return temp <= b.Low
}

// Decide maps a temperature onto the band. Inside the band the current
// equipment state is kept.
func Decide(b Band, temp float64) Action {
	switch {
	case b.TooHot(temp):
		return ActionActivate
	case b.TooCold(temp):
		return ActionDeactivate
	default:
		return ActionHold
	}
}

// Input is one tick's view of the climate.
type Input struct {
	// Temperature of the control sensor. Only meaningful if HaveReading.
	Temperature float64
	HaveReading bool
	// Stale lists sensors that have been down for too long.
	Stale []string
}

// Decision is an Action with a human-readable reason for the log.
type Decision struct {
	Action Action
	Reason string
	// Emergency is set when every system must be shut down, not just the
	// ventilation.
	Emergency bool
}

// Plan decides what to do for one tick. A stale sensor overrides the
// temperature: every system is shut down until all sensors recover.
func Plan(b Band, in Input) Decision {
	if len(in.Stale) > 0 {
		return Decision{
			Action:    ActionDeactivate,
			Reason:    "sensor down for an extended period: " + strings.Join(in.Stale, ", "),
			Emergency: true,
		}
	}
	if !in.HaveReading {
		return Decision{Action: ActionHold, Reason: "no reading from control sensor yet"}
	}

	action := Decide(b, in.Temperature)
	var reason string
	switch action {
	case ActionActivate:
		reason = fmt.Sprintf("%.1f°C is above %.1f°C", in.Temperature, b.High)
	case ActionDeactivate:
		reason = fmt.Sprintf("%.1f°C is at or below %.1f°C", in.Temperature, b.Low)
	default:
		reason = fmt.Sprintf("%.1f°C is inside the band", in.Temperature)
	}
	return Decision{Action: action, Reason: reason}
}
