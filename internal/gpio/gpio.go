// Package gpio provides button press events with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Button identifies one of the three panel buttons.
type Button string

const (
	ButtonA Button = "A" // start an access
	ButtonB Button = "B" // stop an access
	ButtonC Button = "C" // finish the run
)

// Press is a single debounced button press.
type Press struct {
	Button Button
	Time   time.Time
}

// Buttons delivers button presses as messages to the run loop.
type Buttons interface {
	// Events returns the channel presses are delivered on.
	Events() <-chan Press

	// Close releases GPIO resources. The events channel is not closed.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinA = 17
	DefaultPinB = 27
	DefaultPinC = 22
)

// Pins maps each button to a GPIO line offset.
type Pins struct {
	A, B, C int
}

// DefaultPins returns the default button wiring.
func DefaultPins() Pins {
	return Pins{A: DefaultPinA, B: DefaultPinB, C: DefaultPinC}
}

// eventBuffer is the capacity of the press channel. Presses beyond it are
// dropped rather than blocking the GPIO event goroutine.
const eventBuffer = 8
