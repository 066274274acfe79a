//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// consumer is the label the kernel shows for lines we hold.
const consumer = "greenhouse"

// Chip owns the GPIO character device and every relay requested from it.
type Chip struct {
	chip *gpiocdev.Chip

	mu     sync.Mutex
	relays []*Relay
}

// OpenChip opens the named GPIO chip (e.g. "gpiochip0").
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Relay requests pin as an output, starting released.
// activeLow inverts the physical level for relay boards that energise on a
// low input.
func (c *Chip) Relay(pin int, activeLow bool) (*Relay, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(int(Idle))}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := c.chip.RequestLine(pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
	}

	r := &Relay{pin: pin, line: line, level: Idle}

	c.mu.Lock()
	c.relays = append(c.relays, r)
	c.mu.Unlock()

	return r, nil
}

// Close releases and closes every relay, then the chip itself.
func (c *Chip) Close() error {
	var errs []error

	c.mu.Lock()
	relays := c.relays
	c.relays = nil
	c.mu.Unlock()

	for _, r := range relays {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Relay drives a single output line through the GPIO character device.
type Relay struct {
	pin  int
	line *gpiocdev.Line

	mu     sync.Mutex
	level  Level
	closed bool
}

// Pin returns the BCM offset of the line.
func (r *Relay) Pin() int {
	return r.pin
}

// Set drives the line to level.
func (r *Relay) Set(level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("relay pin %d: line closed", r.pin)
	}
	if err := r.line.SetValue(int(level)); err != nil {
		return fmt.Errorf("set relay pin %d %s: %w", r.pin, level, err)
	}
	r.level = level
	return nil
}

// Release drives the line back to Idle.
func (r *Relay) Release() error {
	return r.Set(Idle)
}

// Level returns the last level written to the line.
func (r *Relay) Level() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Close releases the line to Idle before handing it back to the kernel, so
// no relay stays energised after the process exits.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if err := r.line.SetValue(int(Idle)); err != nil {
		errs = append(errs, fmt.Errorf("release relay pin %d: %w", r.pin, err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay pin %d: %w", r.pin, err))
	}
	r.level = Idle

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
