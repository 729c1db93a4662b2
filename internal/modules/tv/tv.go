// Package tv exposes Samsung-style televisions as channels. Each channel
// wraps one samsung.Session, which connects and authenticates on first use
// and reconnects after any failure.
package tv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/winstonhome/winston/internal/bridges/samsung"
	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
)

// Type is the module key.
const Type = "tv"

// StateListener is told about session state changes of every TV.
type StateListener func(tv string, from, to samsung.State)

// Module holds one channel per television.
type Module struct {
	module.Base
	sessions map[string]*samsung.Session
	order    []string
	logger   samsung.Logger
	dialer   samsung.Dialer
	listener StateListener
}

var _ module.Instance = (*Module)(nil)

// New creates an empty TV module.
func New() *Module {
	return &Module{
		Base:     module.NewBase(Type),
		sessions: make(map[string]*samsung.Session),
	}
}

// SetLogger sets the logger handed to each session.
func (m *Module) SetLogger(l samsung.Logger) { m.logger = l }

// SetDialer replaces the socket dialer of sessions created afterwards.
func (m *Module) SetDialer(d samsung.Dialer) { m.dialer = d }

// SetStateListener registers a callback for session state changes of
// sessions created afterwards.
func (m *Module) SetStateListener(fn StateListener) { m.listener = fn }

// Initialize reads "host" (required), "port", "name", "id", "client_ip" and
// "auth_timeout" for each television. No connection is opened here.
func (m *Module) Initialize(_ context.Context, channels []module.ChannelParams) error {
	for _, cp := range channels {
		cfg, err := sessionConfig(cp.Params)
		if err != nil {
			return err
		}
		if err := m.AddTV(cp.ID, samsung.NewSession(cfg)); err != nil {
			return err
		}
	}
	return nil
}

func sessionConfig(p module.Parameters) (samsung.Config, error) {
	host, err := p.Require("host")
	if err != nil {
		return samsung.Config{}, err
	}
	port, err := p.Int("port", 0)
	if err != nil {
		return samsung.Config{}, err
	}
	authTimeout, err := p.Duration("auth_timeout", 0)
	if err != nil {
		return samsung.Config{}, err
	}
	return samsung.Config{
		Host:        host,
		Port:        port,
		RemoteName:  p.String("name", ""),
		ClientID:    p.String("id", ""),
		ClientIP:    p.String("client_ip", ""),
		AuthTimeout: authTimeout,
	}, nil
}

// AddTV registers a television channel backed by s. Its values are
// 0 "key" (blocking), 1 "key_async" (fire-and-forget) and 2 "state".
func (m *Module) AddTV(id string, s *samsung.Session) error {
	if m.logger != nil {
		s.SetLogger(m.logger)
	}
	if m.dialer != nil {
		s.SetDialer(m.dialer)
	}
	if m.listener != nil {
		fn := m.listener
		s.SetStateListener(func(from, to samsung.State) { fn(id, from, to) })
	}

	ch := channel.New(id, channel.TypeTV,
		channel.String("key", channel.WriteOnly, nil,
			func(ctx context.Context, key string) error {
				return wrap(id, s.SendKey(ctx, normalizeKey(key)))
			},
		),
		channel.String("key_async", channel.WriteOnly, nil,
			func(ctx context.Context, key string) error {
				return wrap(id, s.SendKeyAsync(ctx, normalizeKey(key)))
			},
		),
		channel.String("state", channel.ReadOnly,
			func(context.Context) (string, error) { return s.State().String(), nil },
			nil,
		),
	)
	if err := m.Add(ch); err != nil {
		return err
	}
	m.sessions[id] = s
	m.order = append(m.order, id)
	return nil
}

// Close closes every session.
func (m *Module) Close() error {
	var errs []error
	for _, id := range m.order {
		if err := m.sessions[id].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// normalizeKey accepts "power" as well as "KEY_POWER".
func normalizeKey(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if !strings.HasPrefix(key, "KEY_") {
		key = "KEY_" + key
	}
	return key
}

func wrap(id string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: tv %q: %w", channel.ErrBackend, id, err)
}
