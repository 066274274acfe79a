// Package status tracks sensor health and the daemon's view of its
// equipment. It is written by the control loop and read by the loop's
// logging and the read subcommand.
package status

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxDowntime is how long a sensor may go without a good reading
// before the equipment is shut down.
const DefaultMaxDowntime = 2 * time.Minute

// SensorHealth is the read history of a single sensor.
type SensorHealth struct {
	LastSuccess time.Time
	LastFailure time.Time
	Failures    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	StartTime   time.Time
	Now         time.Time
	MaxDowntime time.Duration
	Sensors     map[string]SensorHealth
	Equipment   map[string]string
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Watchdog decides when sensors have been silent for too long.
type Watchdog struct {
	mu          sync.RWMutex
	start       time.Time
	maxDowntime time.Duration
	sensors     map[string]SensorHealth
	equipment   map[string]string
}

// NewWatchdog creates a Watchdog. Sensors listed in locations are tracked
// from start even if they never produce a reading. A non-positive
// maxDowntime means DefaultMaxDowntime.
func NewWatchdog(start time.Time, maxDowntime time.Duration, locations ...string) *Watchdog {
	if maxDowntime <= 0 {
		maxDowntime = DefaultMaxDowntime
	}
	w := &Watchdog{
		start:       start,
		maxDowntime: maxDowntime,
		sensors:     make(map[string]SensorHealth, len(locations)),
		equipment:   make(map[string]string),
	}
	for _, loc := range locations {
		w.sensors[loc] = SensorHealth{}
	}
	return w
}

// MarkSuccess records a good reading from location at t.
func (w *Watchdog) MarkSuccess(location string, t time.Time) {
	w.mu.Lock()
	h := w.sensors[location]
	h.LastSuccess = t
	w.sensors[location] = h
	w.mu.Unlock()
}

// MarkFailure records a failed read from location at t.
func (w *Watchdog) MarkFailure(location string, t time.Time) {
	w.mu.Lock()
	h := w.sensors[location]
	h.LastFailure = t
	h.Failures++
	w.sensors[location] = h
	w.mu.Unlock()
}

// Stale returns, sorted, the sensors whose last good reading (or the
// watchdog start, for a sensor that never succeeded) is at least
// maxDowntime before now.
func (w *Watchdog) Stale(now time.Time) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var stale []string
	for loc, h := range w.sensors {
		last := h.LastSuccess
		if last.IsZero() {
			last = w.start
		}
		if !last.Add(w.maxDowntime).After(now) {
			stale = append(stale, loc)
		}
	}
	sort.Strings(stale)
	return stale
}

// SetEquipment records the last observed state of a piece of equipment.
func (w *Watchdog) SetEquipment(name, state string) {
	w.mu.Lock()
	w.equipment[name] = state
	w.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the tracked state.
// The Now field is set to the current time at the moment of the call.
func (w *Watchdog) Snapshot() Snapshot {
	w.mu.RLock()
	s := Snapshot{
		StartTime:   w.start,
		MaxDowntime: w.maxDowntime,
		Sensors:     make(map[string]SensorHealth, len(w.sensors)),
		Equipment:   make(map[string]string, len(w.equipment)),
	}
	for k, v := range w.sensors {
		s.Sensors[k] = v
	}
	for k, v := range w.equipment {
		s.Equipment[k] = v
	}
	w.mu.RUnlock()
	s.Now = time.Now()
	return s
}
