package modbus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
)

// Type is the module key.
const Type = "modbus"

const defaultTimeout = 5 * time.Second

// DialFunc opens a device. It is replaced in tests.
type DialFunc func(address string, slave byte, timeout time.Duration) *Device

// Module holds one channel per Modbus device.
type Module struct {
	module.Base
	dial    DialFunc
	devices []*Device
}

var _ module.Instance = (*Module)(nil)

// New creates an empty Modbus module.
func New() *Module {
	return &Module{Base: module.NewBase(Type), dial: Dial}
}

// SetDial replaces the device constructor.
func (m *Module) SetDial(fn DialFunc) { m.dial = fn }

// Initialize reads "address", "slave" (default 1), "timeout" and the
// repeated "coil", "discrete", "register" and "input" declarations
// (name:address) of each channel.
func (m *Module) Initialize(_ context.Context, channels []module.ChannelParams) error {
	for _, cp := range channels {
		addr, err := cp.Params.Require("address")
		if err != nil {
			return err
		}
		slave, err := cp.Params.Int("slave", 1)
		if err != nil {
			return err
		}
		if slave < 0 || slave > 247 {
			return fmt.Errorf("%w: channel %q: slave %d out of range", module.ErrInvalidParameter, cp.ID, slave)
		}
		timeout, err := cp.Params.Duration("timeout", defaultTimeout)
		if err != nil {
			return err
		}

		dev := m.dial(addr, byte(slave), timeout)
		m.devices = append(m.devices, dev)
		values, err := buildValues(cp, dev)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return fmt.Errorf("%w: channel %q: no coil, discrete, register or input", module.ErrMissingParameter, cp.ID)
		}
		if err := m.Add(channel.New(cp.ID, channel.TypeModbus, values...)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every device connection.
func (m *Module) Close() error {
	var errs []error
	for _, d := range m.devices {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildValues(cp module.ChannelParams, dev *Device) ([]channel.Value, error) {
	var values []channel.Value
	add := func(param string, build func(name string, addr uint16) channel.Value) error {
		for _, decl := range cp.Params.All(param) {
			name, addr, err := parsePoint(decl)
			if err != nil {
				return fmt.Errorf("channel %q: %s: %w", cp.ID, param, err)
			}
			values = append(values, build(name, addr))
		}
		return nil
	}

	backend := func(name string, err error) error {
		return fmt.Errorf("%w: modbus %q %s: %w", channel.ErrBackend, cp.ID, name, err)
	}

	if err := add("coil", func(name string, addr uint16) channel.Value {
		return channel.Bool(name, channel.ReadWrite,
			func(context.Context) (bool, error) {
				on, err := dev.Coil(addr)
				if err != nil {
					return false, backend(name, err)
				}
				return on, nil
			},
			func(_ context.Context, on bool) error {
				if err := dev.SetCoil(addr, on); err != nil {
					return backend(name, err)
				}
				return nil
			},
		)
	}); err != nil {
		return nil, err
	}

	if err := add("discrete", func(name string, addr uint16) channel.Value {
		return channel.Bool(name, channel.ReadOnly,
			func(context.Context) (bool, error) {
				on, err := dev.Discrete(addr)
				if err != nil {
					return false, backend(name, err)
				}
				return on, nil
			},
			nil,
		)
	}); err != nil {
		return nil, err
	}

	if err := add("register", func(name string, addr uint16) channel.Value {
		return channel.Int(name, channel.ReadWrite,
			func(context.Context) (int64, error) {
				v, err := dev.Register(addr)
				if err != nil {
					return 0, backend(name, err)
				}
				return int64(v), nil
			},
			func(_ context.Context, v int64) error {
				if v < 0 || v > math.MaxUint16 {
					return fmt.Errorf("%w: %q: %d does not fit a register", channel.ErrInvalidValue, name, v)
				}
				if err := dev.SetRegister(addr, uint16(v)); err != nil {
					return backend(name, err)
				}
				return nil
			},
		)
	}); err != nil {
		return nil, err
	}

	if err := add("input", func(name string, addr uint16) channel.Value {
		return channel.Int(name, channel.ReadOnly,
			func(context.Context) (int64, error) {
				v, err := dev.Input(addr)
				if err != nil {
					return 0, backend(name, err)
				}
				return int64(v), nil
			},
			nil,
		)
	}); err != nil {
		return nil, err
	}

	return values, nil
}

// parsePoint parses "name:address". Addresses accept 0x prefixes.
func parsePoint(decl string) (string, uint16, error) {
	name, raw, ok := strings.Cut(decl, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, fmt.Errorf("%w: %q: want name:address", module.ErrInvalidParameter, decl)
	}
	addr, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: bad address", module.ErrInvalidParameter, decl)
	}
	return name, uint16(addr), nil
}
