// Package sensor reads climate sensors.
package sensor

import (
	"context"
	"fmt"
)

// Reading is one good sample from a sensor.
type Reading struct {
	// Temperature in °C.
	Temperature float64 `yaml:"temperature"`
	// Humidity is relative humidity in percent.
	Humidity float64 `yaml:"rel_humidity"`
}

func (r Reading) String() string {
	return fmt.Sprintf("%.1f°C %.1f%%", r.Temperature, r.Humidity)
}

// Sensor is a climate sensor at a named location.
type Sensor interface {
	Location() string
	// Read returns a reading, or false if none could be taken. A missing
	// reading is not an error: the caller keeps its previous value.
	Read(ctx context.Context) (Reading, bool)
}
