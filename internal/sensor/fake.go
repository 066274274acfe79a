package sensor

import (
	"context"
	"sync"
)

// Fake is a test double that returns scripted readings.
type Fake struct {
	Name string

	// Readings are returned in order. A nil entry is a failed read. Once
	// exhausted the last entry repeats.
	Readings []*Reading

	mu    sync.Mutex
	calls int
}

// NewFake creates a Fake returning the given readings.
func NewFake(location string, readings ...*Reading) *Fake {
	return &Fake{Name: location, Readings: readings}
}

// Location returns the sensor location.
func (f *Fake) Location() string { return f.Name }

// Read returns the next scripted reading.
func (f *Fake) Read(context.Context) (Reading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Readings) == 0 {
		f.calls++
		return Reading{}, false
	}
	i := f.calls
	if i >= len(f.Readings) {
		i = len(f.Readings) - 1
	}
	f.calls++
	if f.Readings[i] == nil {
		return Reading{}, false
	}
	return *f.Readings[i], true
}

// Calls returns how many times Read was called.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// At is shorthand for a scripted reading.
func At(temp, humidity float64) *Reading {
	return &Reading{Temperature: temp, Humidity: humidity}
}
