// Package gpio abstracts the digital pins of the node's host board.
//
// Drivers:
//   - RPIO drives Raspberry Pi pins through /dev/gpiomem
//   - Memory keeps levels in memory and records every call; it serves
//     development machines without GPIO and tests
package gpio

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrClosed is returned by drivers and pins after Close.
	ErrClosed = errors.New("gpio: driver closed")

	// ErrInvalidPin is returned for pin numbers the driver cannot address.
	ErrInvalidPin = errors.New("gpio: invalid pin")

	// ErrPinInUse is returned when a pin is provisioned twice.
	ErrPinInUse = errors.New("gpio: pin already provisioned")
)

// Level is a logic level.
type Level uint8

// Logic levels.
const (
	Low Level = iota
	High
)

// String returns "low" or "high".
func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Pin is a provisioned pin.
type Pin interface {
	Number() int
	Read() (Level, error)
	// Write fails on input pins.
	Write(Level) error
}

// Driver provisions pins. Provisioning may briefly drive the pin, so callers
// provision outputs only when they are about to use them.
type Driver interface {
	// Output configures pin n as an output. On Close the driver returns the
	// pin to shutdown before releasing it.
	Output(n int, shutdown Level) (Pin, error)
	// Input configures pin n as a floating input.
	Input(n int) (Pin, error)
	// Close returns every output to its shutdown level and releases the
	// hardware.
	Close() error
}

func checkPin(n int) error {
	if n < 0 || n > 53 {
		return fmt.Errorf("%w: %d", ErrInvalidPin, n)
	}
	return nil
}
