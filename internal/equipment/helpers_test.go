package equipment

import (
	"time"

	"github.com/sweeney/greenhouse/internal/gpio"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// testClock is a manual clock. Sleeps are recorded and, when advance is
// set, move the clock forward like a real stroke would.
type testClock struct {
	now     time.Time
	advance bool
	sleeps  []time.Duration
}

func newTestClock(advance bool) *testClock {
	return &testClock{now: t0, advance: advance}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	if c.advance {
		c.now = c.now.Add(d)
	}
}

// at moves the clock to t0 + offset.
func (c *testClock) at(offset time.Duration) {
	c.now = t0.Add(offset)
}

func (c *testClock) option() Option {
	return WithClock(c.Now, c.Sleep)
}

// stubDevice scripts hook results and counts calls.
type stubDevice struct {
	activateOK    bool
	deactivateOK  bool
	activateErr   error
	deactivateErr error

	activateCalls   int
	deactivateCalls int
	seenLastChange  []time.Time

	// during, if set, runs inside every hook.
	during func()
}

func (d *stubDevice) TryActivate(lastChange time.Time) (bool, error) {
	d.activateCalls++
	d.seenLastChange = append(d.seenLastChange, lastChange)
	if d.during != nil {
		d.during()
	}
	return d.activateOK, d.activateErr
}

func (d *stubDevice) TryDeactivate(lastChange time.Time) (bool, error) {
	d.deactivateCalls++
	d.seenLastChange = append(d.seenLastChange, lastChange)
	if d.during != nil {
		d.during()
	}
	return d.deactivateOK, d.deactivateErr
}

// spy is a Controllable that records calls into a shared call log.
type spy struct {
	name  string
	calls *[]string
	state State

	activateOK   bool
	deactivateOK bool
	err          error
}

func newSpy(name string, calls *[]string) *spy {
	return &spy{name: name, calls: calls, activateOK: true, deactivateOK: true}
}

func (s *spy) Name() string { return s.name }

func (s *spy) State() State { return s.state }

func (s *spy) record(op string) { *s.calls = append(*s.calls, s.name+"."+op) }

func (s *spy) Activate() (bool, error) {
	s.record("activate")
	if s.err != nil || !s.activateOK {
		return false, s.err
	}
	s.state = StateActivated
	return true, nil
}

func (s *spy) Deactivate() (bool, error) {
	s.record("deactivate")
	return s.off()
}

func (s *spy) ForceDeactivate() (bool, error) {
	s.record("force")
	return s.off()
}

func (s *spy) off() (bool, error) {
	if s.err != nil || !s.deactivateOK {
		return false, s.err
	}
	s.state = StateDeactivated
	return true, nil
}

// windowRig builds a single-relay window on fakes sharing a journal.
type windowRig struct {
	open    *gpio.Fake
	close   *gpio.Fake
	journal *gpio.Journal
	clock   *testClock
}

func newWindowRig(advance bool) *windowRig {
	j := &gpio.Journal{}
	open := gpio.NewFake("open")
	closeCh := gpio.NewFake("close")
	open.Journal = j
	closeCh.Journal = j
	return &windowRig{open: open, close: closeCh, journal: j, clock: newTestClock(advance)}
}

func (r *windowRig) config(stroke, cooldown time.Duration) WindowConfig {
	return WindowConfig{
		Open:                   []gpio.Channel{r.open},
		Close:                  []gpio.Channel{r.close},
		Stroke:                 stroke,
		Cooldown:               cooldown,
		Settle:                 DefaultSettle,
		EnforceCooldownOnClose: true,
	}
}

func (r *windowRig) idle() bool {
	return r.open.Level() == gpio.Idle && r.close.Level() == gpio.Idle
}
