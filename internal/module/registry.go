package module

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/infrastructure/config"
)

// Logger defines the logging interface used by the Registry.
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

// State is the lifecycle state of a module.
type State int

// Module lifecycle states.
const (
	StateUninitialized State = iota
	StateInitialized
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ChannelParams is the configuration of one channel handed to Initialize.
type ChannelParams struct {
	ID     string
	Params Parameters
}

// Instance is a module that is populated from configuration.
type Instance interface {
	channel.Module
	// Initialize connects to the backend and builds the channels. It is
	// called exactly once; on error the module is discarded.
	Initialize(ctx context.Context, channels []ChannelParams) error
}

// Factory creates an uninitialized module instance.
type Factory func() Instance

// Factories maps a module type to its constructor.
type Factories map[string]Factory

// Registry maps module type to a live module. It is built once and is safe
// for concurrent reads.
type Registry struct {
	modules map[string]channel.Module
	states  map[string]State
	order   []string
}

// NewRegistry creates a registry from already-built modules.
func NewRegistry(modules ...channel.Module) (*Registry, error) {
	r := &Registry{
		modules: make(map[string]channel.Module, len(modules)),
		states:  make(map[string]State, len(modules)),
	}
	for _, m := range modules {
		if _, exists := r.modules[m.Type()]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModule, m.Type())
		}
		r.add(m)
	}
	return r, nil
}

func (r *Registry) add(m channel.Module) {
	r.modules[m.Type()] = m
	r.states[m.Type()] = StateInitialized
	r.order = append(r.order, m.Type())
}

// Build creates and initializes every configured module. Modules that
// cannot be created or initialized are logged, recorded as StateFailed and
// left out of the registry; a failed module that is an io.Closer is closed.
func Build(ctx context.Context, factories Factories, cfgs []config.ModuleConfig, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Registry{
		modules: make(map[string]channel.Module, len(cfgs)),
		states:  make(map[string]State, len(cfgs)),
	}

	for _, mc := range cfgs {
		if _, exists := r.modules[mc.Type]; exists {
			logger.Error("module skipped", "type", mc.Type, "error", ErrDuplicateModule)
			continue
		}

		factory, ok := factories[mc.Type]
		if !ok {
			r.states[mc.Type] = StateFailed
			logger.Error("module skipped", "type", mc.Type, "error", ErrUnknownType)
			continue
		}

		inst := factory()
		r.states[mc.Type] = StateUninitialized

		params := make([]ChannelParams, 0, len(mc.Channels))
		for _, ch := range mc.Channels {
			params = append(params, ChannelParams{
				ID:     ch.ID,
				Params: NewParameters(ch.ID, ch.Params),
			})
		}

		if err := inst.Initialize(ctx, params); err != nil {
			r.states[mc.Type] = StateFailed
			logger.Error("module initialization failed", "type", mc.Type, "error", err)
			// Release whatever the partial initialization opened.
			if c, ok := inst.(io.Closer); ok {
				if cerr := c.Close(); cerr != nil {
					logger.Warn("failed module close error", "type", mc.Type, "error", cerr)
				}
			}
			continue
		}

		r.add(inst)
		logger.Info("module initialized", "type", mc.Type, "channels", len(inst.Channels()))
	}

	return r
}

// Lookup returns the module registered under key.
func (r *Registry) Lookup(key string) (channel.Module, bool) {
	m, ok := r.modules[key]
	return m, ok
}

// Types returns the registered module types in configuration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// State returns the lifecycle state of a configured module type.
// Unconfigured types report StateUninitialized.
func (r *Registry) State(key string) State {
	return r.states[key]
}

// Failed returns the configured module types that did not initialize,
// sorted by name.
func (r *Registry) Failed() []string {
	var out []string
	for k, s := range r.states {
		if s == StateFailed {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int { return len(r.order) }

// Close closes every registered module that holds resources, in reverse
// registration order. All modules are closed even if one fails.
func (r *Registry) Close() error {
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		c, ok := r.modules[r.order[i]].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", r.order[i], err))
		}
	}
	return errors.Join(errs...)
}
