// Package gpio provides relay output channels with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Level is the logical level of an output line.
// Active-low relay boards are handled by the line configuration, so Low is
// always "relay off" and High is always "relay energised".
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Idle is the level a released channel rests at.
const Idle = Low

// Channel drives one relay coil or motor driver input.
type Channel interface {
	// Set drives the line to the given logical level.
	// Setting the level the line is already at is a no-op for the relay.
	Set(level Level) error

	// Release returns the line to Idle. Safe to call redundantly.
	Release() error

	// Level returns the last level successfully written.
	Level() Level

	// Close releases the line back to the kernel.
	Close() error
}

// Default pin assignments (BCM numbering) of the reference greenhouse wiring.
const (
	DefaultPinFan          = 26
	DefaultPinOpenVDC      = 27
	DefaultPinOpenNeutral  = 17
	DefaultPinCloseVDC     = 24
	DefaultPinCloseNeutral = 22
)

// DefaultChip is the GPIO character device used on Raspberry Pi boards.
const DefaultChip = "gpiochip0"
