package wemo

import (
	"context"
	"fmt"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
)

// Type is the module key.
const Type = "wemo"

// Module exposes configured switches. Each channel has a single value,
// "state".
type Module struct {
	module.Base
}

var _ module.Instance = (*Module)(nil)

// New creates an empty WeMo module.
func New() *Module {
	return &Module{Base: module.NewBase(Type)}
}

// Initialize reads the "address" and optional "timeout" parameters of each
// channel. Switches are not contacted until first use.
func (m *Module) Initialize(_ context.Context, channels []module.ChannelParams) error {
	for _, cp := range channels {
		addr, err := cp.Params.Require("address")
		if err != nil {
			return err
		}
		timeout, err := cp.Params.Duration("timeout", defaultTimeout)
		if err != nil {
			return err
		}
		if err := m.AddSwitch(cp.ID, NewClient(addr, timeout)); err != nil {
			return err
		}
	}
	return nil
}

// AddSwitch registers a switch channel backed by c.
func (m *Module) AddSwitch(id string, c *Client) error {
	ch := channel.New(id, channel.TypeSwitch,
		channel.Bool("state", channel.ReadWrite,
			func(ctx context.Context) (bool, error) {
				on, err := c.State(ctx)
				if err != nil {
					return false, fmt.Errorf("%w: wemo %q: %w", channel.ErrBackend, id, err)
				}
				return on, nil
			},
			func(ctx context.Context, on bool) error {
				if err := c.SetState(ctx, on); err != nil {
					return fmt.Errorf("%w: wemo %q: %w", channel.ErrBackend, id, err)
				}
				return nil
			},
		),
	)
	return m.Add(ch)
}
