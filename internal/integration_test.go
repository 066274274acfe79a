package internal

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/greenhouse/internal/equipment"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/sensor"
	"github.com/sweeney/greenhouse/internal/status"
)

// TestIntegrationDaySequence runs a warming and cooling day through sensors,
// the watchdog, the control decision and the ventilation on fake relays.
func TestIntegrationDaySequence(t *testing.T) {
	temps := []float64{
		22, 23, 25, // cool morning: hold closed
		27.5, 29, 30, // midday: open and ventilate
		26, 25, // afternoon: inside the band, stay open
		24, 21, // evening: close up
	}
	readings := make([]*sensor.Reading, len(temps))
	for i, temp := range temps {
		readings[i] = sensor.At(temp, 55)
	}

	startTime := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	now := startTime
	clockNow := func() time.Time { return now }
	sleep := func(d time.Duration) { now = now.Add(d) }
	opts := []equipment.Option{equipment.WithClock(clockNow, sleep)}

	j := &gpio.Journal{}
	fanRelay, openRelay, closeRelay := gpio.NewFake("fan"), gpio.NewFake("open"), gpio.NewFake("close")
	for _, f := range []*gpio.Fake{fanRelay, openRelay, closeRelay} {
		f.Journal = j
	}

	fan, err := equipment.NewFan("Fan 1", fanRelay, opts...)
	if err != nil {
		t.Fatal(err)
	}
	cooldown, err := equipment.Cooldown(30*time.Second, 0.75, equipment.CooldownRest)
	if err != nil {
		t.Fatal(err)
	}
	window, err := equipment.NewWindowActuator("Window 1", equipment.WindowConfig{
		Open:                   []gpio.Channel{openRelay},
		Close:                  []gpio.Channel{closeRelay},
		Stroke:                 30 * time.Second,
		Cooldown:               cooldown,
		Settle:                 equipment.DefaultSettle,
		EnforceCooldownOnClose: true,
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	vent, err := equipment.NewVentilation("Ventilation system 1", fan, window, opts...)
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := vent.CloseUp(); !ok || err != nil {
		t.Fatalf("close up: ok=%v err=%v", ok, err)
	}

	front := sensor.NewFake("front", readings...)
	watchdog := status.NewWatchdog(startTime, status.DefaultMaxDowntime, "front")
	pollInterval := 10 * time.Minute

	var states []equipment.State
	var vals map[string]sensor.Reading
	for i := range temps {
		now = now.Add(pollInterval)
		vals = sensor.ReadAll(context.Background(), []sensor.Sensor{front}, vals, watchdog, clockNow)

		r, have := vals["front"]
		d := logic.Plan(logic.DefaultBand, logic.Input{
			Temperature: r.Temperature,
			HaveReading: have,
			Stale:       watchdog.Stale(now),
		})
		var ok bool
		switch d.Action {
		case logic.ActionActivate:
			ok, err = vent.Activate()
		case logic.ActionDeactivate:
			ok, err = vent.Deactivate()
		default:
			ok = true
		}
		if err != nil || !ok {
			t.Fatalf("sample %d (%v°C): %s ok=%v err=%v", i, temps[i], d.Action, ok, err)
		}
		states = append(states, vent.State())
	}

	want := []equipment.State{
		equipment.StateDeactivated, equipment.StateDeactivated, equipment.StateDeactivated,
		equipment.StateActivated, equipment.StateActivated, equipment.StateActivated,
		equipment.StateActivated, equipment.StateActivated,
		equipment.StateDeactivated, equipment.StateDeactivated,
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("sample %d (%v°C): got %s, want %s", i, temps[i], states[i], want[i])
		}
	}

	// One close up, one opening, one closing; the fan ran exactly once.
	var opens, closes, fanStarts int
	for _, e := range j.Entries() {
		switch e {
		case "open=HIGH":
			opens++
		case "close=HIGH":
			closes++
		case "fan=HIGH":
			fanStarts++
		}
	}
	if opens != 1 || closes != 2 || fanStarts != 1 {
		t.Errorf("strokes: opens=%d closes=%d fan starts=%d, want 1/2/1", opens, closes, fanStarts)
	}
	if fanRelay.Level() != gpio.Idle || openRelay.Level() != gpio.Idle || closeRelay.Level() != gpio.Idle {
		t.Error("expected every relay at rest at the end of the day")
	}
	if stale := watchdog.Stale(now); len(stale) != 0 {
		t.Errorf("unexpected stale sensors: %v", stale)
	}
}
