// Package relay drives active-low relay boards attached to GPIO pins.
//
// A relay is on while its pin is driven low. Pins are provisioned lazily, on
// the first request to switch a relay on: provisioning can pulse the pin,
// and doing it at startup would briefly engage actuators such as a garage
// door opener. Provisioned pins return to high when the controller closes.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/winstonhome/winston/internal/hardware/gpio"
)

// ErrUnknownRelay is returned for relay numbers without a configured pin.
var ErrUnknownRelay = errors.New("relay: unknown relay")

const (
	levelOn  = gpio.Low
	levelOff = gpio.High
)

// DefaultClickDelay is how long Click holds a relay on.
const DefaultClickDelay = 500 * time.Millisecond

// Logger defines the logging interface used by the Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller switches the relays of one board. All operations are
// serialized.
type Controller struct {
	mu         sync.Mutex
	driver     gpio.Driver
	pinNumbers map[int]int
	pins       map[int]gpio.Pin
	on         map[int]bool
	clickDelay time.Duration
	logger     Logger
}

// NewController creates a controller for relays numbered by the keys of
// pins, whose values are GPIO pin numbers. No pin is touched.
func NewController(driver gpio.Driver, pins map[int]int, clickDelay time.Duration) *Controller {
	if clickDelay <= 0 {
		clickDelay = DefaultClickDelay
	}
	numbers := make(map[int]int, len(pins))
	for k, v := range pins {
		numbers[k] = v
	}
	return &Controller{
		driver:     driver,
		pinNumbers: numbers,
		pins:       make(map[int]gpio.Pin),
		on:         make(map[int]bool),
		clickDelay: clickDelay,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger.
func (c *Controller) SetLogger(l Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// Switch turns relay n on or off. Switching off a relay that was never
// switched on does nothing.
func (c *Controller) Switch(_ context.Context, n int, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switchLocked(n, on)
}

// State reports whether relay n is on.
func (c *Controller) State(n int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pinNumbers[n]; !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownRelay, n)
	}
	return c.on[n], nil
}

// Click switches relay n on, waits for the click delay and switches it off.
// It does nothing if the relay is already on. If ctx ends during the wait
// the relay is still switched off before Click returns.
func (c *Controller) Click(ctx context.Context, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pinNumbers[n]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRelay, n)
	}
	if c.on[n] {
		return nil
	}
	if err := c.switchLocked(n, true); err != nil {
		return err
	}

	timer := time.NewTimer(c.clickDelay)
	defer timer.Stop()
	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := c.switchLocked(n, false); err != nil {
		return errors.Join(waitErr, err)
	}
	return waitErr
}

// Close releases the driver, which returns provisioned pins to off.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driver.Close()
}

func (c *Controller) switchLocked(n int, on bool) error {
	num, ok := c.pinNumbers[n]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRelay, n)
	}

	pin, provisioned := c.pins[n]
	if !provisioned {
		if !on {
			return nil
		}
		p, err := c.driver.Output(num, levelOff)
		if err != nil {
			return fmt.Errorf("provisioning relay %d (pin %d): %w", n, num, err)
		}
		c.pins[n] = p
		pin = p
		c.logger.Info("relay pin provisioned", "relay", n, "pin", num)
	}

	level := levelOff
	if on {
		level = levelOn
	}
	if err := pin.Write(level); err != nil {
		return fmt.Errorf("switching relay %d: %w", n, err)
	}
	c.on[n] = on
	c.logger.Debug("relay switched", "relay", n, "on", on)
	return nil
}
