// Package reed reads magnetic reed switches wired to GPIO inputs.
package reed

import (
	"fmt"
	"sync"

	"github.com/winstonhome/winston/internal/hardware/gpio"
)

// Sensor is one reed switch. The input is provisioned on first read.
type Sensor struct {
	mu         sync.Mutex
	driver     gpio.Driver
	number     int
	closedHigh bool
	pin        gpio.Pin
}

// NewSensor creates a sensor on pin n. With closedHigh the contact reads
// high when closed; otherwise it pulls the input low.
func NewSensor(driver gpio.Driver, n int, closedHigh bool) *Sensor {
	return &Sensor{driver: driver, number: n, closedHigh: closedHigh}
}

// Closed reports whether the contact is closed (door shut).
func (s *Sensor) Closed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pin == nil {
		p, err := s.driver.Input(s.number)
		if err != nil {
			return false, fmt.Errorf("provisioning reed pin %d: %w", s.number, err)
		}
		s.pin = p
	}

	level, err := s.pin.Read()
	if err != nil {
		return false, fmt.Errorf("reading reed pin %d: %w", s.number, err)
	}
	return (level == gpio.High) == s.closedHigh, nil
}
