package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// ErrShortReply is returned when a device answers with fewer bytes than
// were requested.
var ErrShortReply = errors.New("modbus: short reply")

// Bus is the subset of modbus.Client used by a Device.
type Bus interface {
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
}

// Device serializes requests to one slave.
type Device struct {
	mu      sync.Mutex
	bus     Bus
	handler *modbus.TCPClientHandler
}

// Dial creates a device at address ("host:port"). The TCP connection is
// opened by the first request and re-opened after idle close.
func Dial(address string, slave byte, timeout time.Duration) *Device {
	handler := modbus.NewTCPClientHandler(address)
	handler.Timeout = timeout
	handler.SlaveId = slave
	handler.IdleTimeout = time.Minute
	return &Device{bus: modbus.NewClient(handler), handler: handler}
}

// NewDevice wraps an existing bus.
func NewDevice(bus Bus) *Device {
	return &Device{bus: bus}
}

// Coil reads one coil.
func (d *Device) Coil(addr uint16) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.bus.ReadCoils(addr, 1)
	return bit(data, err)
}

// SetCoil writes one coil.
func (d *Device) SetCoil(addr uint16, on bool) error {
	value := coilOff
	if on {
		value = coilOn
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.bus.WriteSingleCoil(addr, value)
	return err
}

// Discrete reads one discrete input.
func (d *Device) Discrete(addr uint16) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.bus.ReadDiscreteInputs(addr, 1)
	return bit(data, err)
}

// Register reads one holding register.
func (d *Device) Register(addr uint16) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.bus.ReadHoldingRegisters(addr, 1)
	return word(data, err)
}

// SetRegister writes one holding register.
func (d *Device) SetRegister(addr, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.bus.WriteSingleRegister(addr, value)
	return err
}

// Input reads one input register.
func (d *Device) Input(addr uint16) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := d.bus.ReadInputRegisters(addr, 1)
	return word(data, err)
}

// Close closes the TCP connection, if any.
func (d *Device) Close() error {
	if d.handler == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler.Close()
}

func bit(data []byte, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if len(data) < 1 {
		return false, fmt.Errorf("%w: %d bytes", ErrShortReply, len(data))
	}
	return data[0]&0x01 == 0x01, nil
}

func word(data []byte, err error) (uint16, error) {
	if err != nil {
		return 0, err
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortReply, len(data))
	}
	return binary.BigEndian.Uint16(data), nil
}
