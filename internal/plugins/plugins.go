package plugins

import (
	"context"
	"fmt"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/hardware/onewire"
	"github.com/winstonhome/winston/internal/hardware/reed"
	"github.com/winstonhome/winston/internal/hardware/relay"
	"github.com/winstonhome/winston/internal/infrastructure/config"
	"github.com/winstonhome/winston/internal/module"
)

// Module keys.
const (
	TypeRelay       = "relay"
	TypeReed        = "reed"
	TypeTemperature = "temperature"
)

// Relay exposes relays as channels with values 0 "state" (read/write) and
// 1 "click" (write-only; writing true clicks).
type Relay struct {
	module.Base
	ctrl *relay.Controller
}

// NewRelay creates the relay module for the configured channels.
func NewRelay(ctrl *relay.Controller, channels []config.RelayConfig) (*Relay, error) {
	m := &Relay{Base: module.NewBase(TypeRelay), ctrl: ctrl}
	for _, rc := range channels {
		n := rc.Number
		id := rc.ID
		ch := channel.New(id, channel.TypeRelay,
			channel.Bool("state", channel.ReadWrite,
				func(context.Context) (bool, error) {
					on, err := ctrl.State(n)
					return on, backend(id, err)
				},
				func(ctx context.Context, on bool) error {
					return backend(id, ctrl.Switch(ctx, n, on))
				},
			),
			channel.Bool("click", channel.WriteOnly, nil,
				func(ctx context.Context, click bool) error {
					if !click {
						return nil
					}
					return backend(id, ctrl.Click(ctx, n))
				},
			),
		)
		if err := m.Add(ch); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Close releases the relay board.
func (m *Relay) Close() error { return m.ctrl.Close() }

// Reed exposes reed switches with value 0 "closed".
type Reed struct {
	module.Base
}

// NewReed creates the reed module.
func NewReed(sensors map[string]*reed.Sensor, order []string) (*Reed, error) {
	m := &Reed{Base: module.NewBase(TypeReed)}
	for _, id := range order {
		s, ok := sensors[id]
		if !ok {
			return nil, fmt.Errorf("%w: reed %q", module.ErrMissingParameter, id)
		}
		ch := channel.New(id, channel.TypeReed,
			channel.Bool("closed", channel.ReadOnly,
				func(context.Context) (bool, error) {
					closed, err := s.Closed()
					return closed, backend(id, err)
				},
				nil,
			),
		)
		if err := m.Add(ch); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Temperature exposes 1-Wire sensors with value 0 "celsius".
type Temperature struct {
	module.Base
}

// NewTemperature creates the temperature module.
func NewTemperature(cfg config.TemperatureConfig) (*Temperature, error) {
	m := &Temperature{Base: module.NewBase(TypeTemperature)}
	for _, sc := range cfg.Sensors {
		s := onewire.NewSensor(cfg.BasePath, sc.Device)
		id := sc.ID
		ch := channel.New(id, channel.TypeTemperature,
			channel.Float("celsius", channel.ReadOnly,
				func(context.Context) (float64, error) {
					c, err := s.Celsius()
					return c, backend(id, err)
				},
				nil,
			),
		)
		if err := m.Add(ch); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func backend(id string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q: %w", channel.ErrBackend, id, err)
}
