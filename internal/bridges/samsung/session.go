package samsung

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Default timeouts.
const (
	defaultPort           = 55000
	defaultConnectTimeout = 3 * time.Second
	defaultReadTimeout    = 3 * time.Second
	defaultWriteTimeout   = 3 * time.Second
	defaultAuthTimeout    = 30 * time.Second
	defaultAppName        = "iphone..iapp.samsung"
)

// State is the connection state of a Session.
type State int

// Session states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnectedUnauthenticated
	StateAuthenticated
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnectedUnauthenticated:
		return "CONNECTED_UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// Config holds TV connection settings.
type Config struct {
	Host string
	// Port defaults to 55000.
	Port int
	// AppName identifies the controlling application to the TV.
	AppName string
	// RemoteName is shown on the TV when approval is requested.
	RemoteName string
	// ClientID identifies this remote; the TV remembers approvals by it.
	ClientID string
	// ClientIP is reported in the authentication request.
	ClientIP string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// AuthTimeout bounds the wait for approval on the TV.
	AuthTimeout time.Duration
}

// Dialer opens the TV socket. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StateListener is called on every state change, with the session lock held.
type StateListener func(from, to State)

// Session is a single logical connection to one TV. Methods are serialized
// by an internal mutex, so a connect/authenticate/command sequence is never
// interleaved with another caller's.
type Session struct {
	cfg    Config
	dialer Dialer
	logger Logger

	mu       sync.Mutex
	conn     net.Conn
	state    State
	closed   bool
	listener StateListener
}

// NewSession creates a disconnected session. No I/O happens until the first
// call that needs the TV.
func NewSession(cfg Config) *Session {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.AppName == "" {
		cfg.AppName = defaultAppName
	}
	if cfg.RemoteName == "" {
		cfg.RemoteName = "winston"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = cfg.RemoteName
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = defaultAuthTimeout
	}
	return &Session{
		cfg:    cfg,
		dialer: &net.Dialer{},
		logger: noopLogger{},
	}
}

// SetDialer replaces the socket dialer.
func (s *Session) SetDialer(d Dialer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialer = d
}

// SetLogger sets the logger.
func (s *Session) SetLogger(l Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// SetStateListener registers a callback for state changes.
func (s *Session) SetStateListener(fn StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnsureReady opens the socket unless the session is already connected.
func (s *Session) EnsureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureReady(ctx)
}

// Authenticate connects if needed and waits for the TV to approve the
// remote. It returns ErrAuthDenied or ErrAuthTimeout when the TV refuses.
func (s *Session) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticate(ctx)
}

// SendKey sends a key code and waits for one reply frame.
func (s *Session) SendKey(ctx context.Context, key string) error {
	return s.sendKey(ctx, key, true)
}

// SendKeyAsync sends a key code without waiting for a reply.
func (s *Session) SendKeyAsync(ctx context.Context, key string) error {
	return s.sendKey(ctx, key, false)
}

// Close closes the socket. Further calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.reset()
	return nil
}

func (s *Session) sendKey(ctx context.Context, key string, confirm bool) error {
	body, err := KeyBody(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authenticate(ctx); err != nil {
		return err
	}
	if err := s.write(ctx, body); err != nil {
		return err
	}
	if !confirm {
		return nil
	}
	if _, err := s.read(ctx, s.cfg.ReadTimeout); err != nil {
		return err
	}
	s.logger.Debug("tv key sent", "host", s.cfg.Host, "key", key)
	return nil
}

func (s *Session) ensureReady(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.state == StateConnectedUnauthenticated || s.state == StateAuthenticated {
		return nil
	}

	s.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		s.reset()
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, addr, err)
	}

	s.conn = conn
	s.setState(StateConnectedUnauthenticated)
	return nil
}

func (s *Session) authenticate(ctx context.Context) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	if s.state == StateAuthenticated {
		return nil
	}

	body, err := AuthBody(s.cfg.ClientIP, s.cfg.ClientID, s.cfg.RemoteName)
	if err != nil {
		s.reset()
		return err
	}
	if err := s.write(ctx, body); err != nil {
		return err
	}

	deadline := time.Now().Add(s.cfg.AuthTimeout)
	for {
		msg, err := s.read(ctx, time.Until(deadline))
		if err != nil {
			return err
		}
		switch ParseAuthReply(msg.Body) {
		case AuthAllowed:
			s.setState(StateAuthenticated)
			s.logger.Info("tv remote approved", "host", s.cfg.Host)
			return nil
		case AuthDenied:
			s.reset()
			return ErrAuthDenied
		case AuthTimedOut:
			s.reset()
			return ErrAuthTimeout
		default:
			// Waiting for approval or an unrelated reply.
		}
	}
}

// write frames body and sends it. On failure the session is reset.
func (s *Session) write(ctx context.Context, body []byte) error {
	msg, err := EncodeMessage(s.cfg.AppName, body)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.reset()
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := s.conn.Write(msg); err != nil {
		s.reset()
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// read returns the next reply frame, skipping notifications. On failure
// the session is reset.
func (s *Session) read(ctx context.Context, timeout time.Duration) (Message, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		s.reset()
		return Message{}, fmt.Errorf("set read deadline: %w", err)
	}

	for {
		msg, err := ReadMessage(s.conn)
		if err != nil {
			authenticating := s.state == StateConnectedUnauthenticated
			s.reset()
			var ne net.Error
			if authenticating && errors.As(err, &ne) && ne.Timeout() {
				return Message{}, fmt.Errorf("%w: %w", ErrAuthTimeout, err)
			}
			return Message{}, err
		}
		if msg.IsNotification() {
			s.logger.Debug("tv notification discarded", "host", s.cfg.Host, "marker", msg.Marker)
			continue
		}
		return msg, nil
	}
}

// reset closes the socket and returns to Disconnected.
func (s *Session) reset() {
	if s.conn != nil {
		s.conn.Close() //nolint:errcheck // best effort on a failed socket
		s.conn = nil
	}
	s.setState(StateDisconnected)
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if s.listener != nil {
		s.listener(from, to)
	}
}
