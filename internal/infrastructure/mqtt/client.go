package mqtt

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

// Logger receives session and handler diagnostics. *logging.Logger
// satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler handles one inbound message. paho calls it from its own
// goroutine; a returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Client is the master's broker session. It announces itself on the
// retained system status topic and re-subscribes its routes after every
// reconnect. Safe for concurrent use.
type Client struct {
	conn     pahomqtt.Client
	clientID string
	qos      byte
	log      Logger

	online atomic.Bool

	mu     sync.Mutex
	routes map[string]route
}

type route struct {
	qos     byte
	handler MessageHandler
}

// Dial connects to the configured broker and waits for the first session.
// A nil logger discards diagnostics.
func Dial(cfg config.MQTTConfig, log Logger) (*Client, error) {
	if log == nil {
		log = noopLogger{}
	}
	c := &Client{
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS),
		log:      log,
		routes:   make(map[string]route),
	}

	opts := newOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log.Warn("mqtt reconnecting", "broker", brokerURL(cfg.Broker))
	})

	c.conn = pahomqtt.NewClient(opts)
	if err := wait(c.conn.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, brokerURL(cfg.Broker), err)
	}
	// The connect handler runs on its own goroutine and may lag behind.
	c.online.Store(true)
	return c, nil
}

// sessionUp restores routes and announces the master as online.
func (c *Client) sessionUp() {
	c.online.Store(true)

	c.mu.Lock()
	routes := maps.Clone(c.routes)
	c.mu.Unlock()

	for topic, r := range routes {
		if err := wait(c.conn.Subscribe(topic, r.qos, c.deliver(r.handler)), opTimeout); err != nil {
			c.log.Warn("mqtt resubscribe failed", "topic", topic, "error", err)
		}
	}
	c.announce(statusOnline, "")
	c.log.Info("mqtt session established", "client_id", c.clientID, "routes", len(routes))
}

func (c *Client) sessionDown(err error) {
	c.online.Store(false)
	c.log.Warn("mqtt session lost", "client_id", c.clientID, "error", err)
}

func (c *Client) announce(state, reason string) pahomqtt.Token {
	return c.conn.Publish(Topics{}.SystemStatus(), c.qos, true, statusPayload(c.clientID, state, reason))
}

// Close announces a graceful shutdown and disconnects. The broker only
// publishes the will if the session ends without this.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.IsConnected() {
		if err := wait(c.announce(statusOffline, reasonShutdown), opTimeout); err != nil {
			c.log.Warn("mqtt offline status not delivered", "error", err)
		}
	}
	c.conn.Disconnect(disconnectQuiesce)
	c.online.Store(false)
	return nil
}

// IsConnected reports whether a broker session is up.
func (c *Client) IsConnected() bool {
	return c.online.Load() && c.conn != nil && c.conn.IsConnected()
}

// HealthCheck fails while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// deliver adapts h to paho, logging errors and recovering panics so one
// bad message cannot take down the delivery goroutine.
func (c *Client) deliver(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("mqtt handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := h(msg.Topic(), msg.Payload()); err != nil {
			c.log.Warn("mqtt handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
