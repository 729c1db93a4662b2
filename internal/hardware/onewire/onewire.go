// Package onewire reads DS18B20 temperature sensors through the Linux w1
// sysfs interface.
//
// A sensor's w1_slave file looks like:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// where t is millidegrees Celsius.
package onewire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBasePath is where the kernel lists 1-Wire devices.
const DefaultBasePath = "/sys/bus/w1/devices"

// Domain errors.
var (
	// ErrCRC is returned when the sensor reports a failed checksum.
	ErrCRC = errors.New("onewire: crc check failed")

	// ErrFormat is returned when w1_slave cannot be parsed.
	ErrFormat = errors.New("onewire: unexpected w1_slave format")
)

// Sensor is one DS18B20 on the w1 bus.
type Sensor struct {
	path string
}

// NewSensor creates a sensor for device id (e.g. "28-0316a2795fff") under
// basePath.
func NewSensor(basePath, device string) *Sensor {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Sensor{path: filepath.Join(basePath, device, "w1_slave")}
}

// Celsius reads the current temperature.
func (s *Sensor) Celsius() (float64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return Parse(string(data))
}

// Parse extracts the temperature from the contents of a w1_slave file.
func Parse(data string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("%w: %d lines", ErrFormat, len(lines))
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, ErrCRC
	}
	_, raw, ok := strings.Cut(lines[1], "t=")
	if !ok {
		return 0, fmt.Errorf("%w: no t= field", ErrFormat)
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return float64(milli) / 1000, nil
}
