// Package virtual provides software-only channels whose values live in
// memory, such as an "away" flag or a scene variable.
package virtual

import (
	"context"
	"fmt"
	"sync"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
)

// Type is the module key.
const Type = "virtual"

// Module holds in-memory values. It is safe for concurrent use.
type Module struct {
	module.Base

	mu     sync.RWMutex
	values map[string]string
}

var _ module.Instance = (*Module)(nil)

// New creates an empty virtual module.
func New() *Module {
	return &Module{
		Base:   module.NewBase(Type),
		values: make(map[string]string),
	}
}

// Initialize creates one channel per configuration entry. Each repeated
// "value" parameter declares a value as name:kind:mode[:initial].
func (m *Module) Initialize(_ context.Context, channels []module.ChannelParams) error {
	for _, cp := range channels {
		decls := cp.Params.All("value")
		if len(decls) == 0 {
			return fmt.Errorf("%w: channel %q: value", module.ErrMissingParameter, cp.ID)
		}

		values := make([]channel.Value, 0, len(decls))
		for _, decl := range decls {
			spec, err := module.ParseValueSpec(decl)
			if err != nil {
				return fmt.Errorf("channel %q: %w", cp.ID, err)
			}
			key := cp.ID + "/" + spec.Name
			if _, dup := m.values[key]; dup {
				return fmt.Errorf("%w: channel %q: duplicate value %q", module.ErrInvalidParameter, cp.ID, spec.Name)
			}
			m.values[key] = spec.Initial
			values = append(values, spec.Bind(m.getter(key), m.setter(key)))
		}

		if err := m.Add(channel.New(cp.ID, channel.TypeVariable, values...)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) getter(key string) module.RawGetter {
	return func(context.Context) (string, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.values[key], nil
	}
}

func (m *Module) setter(key string) module.RawSetter {
	return func(_ context.Context, raw string) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.values[key] = raw
		return nil
	}
}
