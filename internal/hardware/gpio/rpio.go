package gpio

import (
	"fmt"
	"sync"

	"github.com/barnybug/ener314/rpio"
)

// RPIO drives Raspberry Pi pins through memory-mapped registers.
type RPIO struct {
	mu      sync.Mutex
	closed  bool
	outputs map[int]Level
	inputs  map[int]bool
}

var _ Driver = (*RPIO)(nil)

// OpenRPIO maps the GPIO registers. It fails on hosts without /dev/gpiomem.
func OpenRPIO() (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening gpio memory: %w", err)
	}
	return &RPIO{
		outputs: make(map[int]Level),
		inputs:  make(map[int]bool),
	}, nil
}

// Output configures pin n as an output.
func (d *RPIO) Output(n int, shutdown Level) (Pin, error) {
	if err := checkPin(n); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if _, used := d.outputs[n]; used || d.inputs[n] {
		return nil, fmt.Errorf("%w: %d", ErrPinInUse, n)
	}

	p := rpio.Pin(n)
	p.Output()
	d.outputs[n] = shutdown
	return &rpioPin{driver: d, pin: p, n: n, output: true}, nil
}

// Input configures pin n as an input with the pull resistor disabled.
func (d *RPIO) Input(n int) (Pin, error) {
	if err := checkPin(n); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if _, used := d.outputs[n]; used || d.inputs[n] {
		return nil, fmt.Errorf("%w: %d", ErrPinInUse, n)
	}

	p := rpio.Pin(n)
	p.Input()
	p.PullOff()
	d.inputs[n] = true
	return &rpioPin{driver: d, pin: p, n: n}, nil
}

// Close drives every output to its shutdown level and unmaps the registers.
func (d *RPIO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for n, level := range d.outputs {
		rpio.Pin(n).Write(toState(level))
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("closing gpio memory: %w", err)
	}
	return nil
}

type rpioPin struct {
	driver *RPIO
	pin    rpio.Pin
	n      int
	output bool
}

func (p *rpioPin) Number() int { return p.n }

func (p *rpioPin) Read() (Level, error) {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	if p.driver.closed {
		return Low, ErrClosed
	}
	if p.pin.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (p *rpioPin) Write(l Level) error {
	if !p.output {
		return fmt.Errorf("gpio: pin %d is an input", p.n)
	}
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	if p.driver.closed {
		return ErrClosed
	}
	p.pin.Write(toState(l))
	return nil
}

func toState(l Level) rpio.State {
	if l == High {
		return rpio.High
	}
	return rpio.Low
}
