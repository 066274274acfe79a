//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

// Relay is not implemented on non-Linux platforms.
func (c *Chip) Relay(pin int, activeLow bool) (*Relay, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// Relay is not available on non-Linux platforms.
type Relay struct{}

// Pin is not implemented on non-Linux platforms.
func (r *Relay) Pin() int { return -1 }

// Set is not implemented on non-Linux platforms.
func (r *Relay) Set(level Level) error { return errUnsupported }

// Release is not implemented on non-Linux platforms.
func (r *Relay) Release() error { return errUnsupported }

// Level is not implemented on non-Linux platforms.
func (r *Relay) Level() Level { return Idle }

// Close is not implemented on non-Linux platforms.
func (r *Relay) Close() error { return nil }
