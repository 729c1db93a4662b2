package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/winstonhome/winston/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration. Only the integration
// tests dial it.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "winston-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// recordingLogger implements Logger for tests.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ pahomqtt.Message = fakeMessage{}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "ChannelState", got: Topics{}.ChannelState("wemo", "lamp", 0), want: "winston/state/wemo/lamp/0"},
		{name: "TriggerFired", got: Topics{}.TriggerFired("evening"), want: "winston/trigger/evening"},
		{name: "SystemStatus", got: Topics{}.SystemStatus(), want: "winston/system/status"},
		{name: "Command", got: Topics{}.Command(), want: "winston/command"},
		{name: "CommandResult", got: Topics{}.CommandResult(), want: "winston/command/result"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name   string
		broker config.MQTTBrokerConfig
		want   string
	}{
		{name: "plain", broker: config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883}, want: "tcp://127.0.0.1:1883"},
		{name: "tls", broker: config.MQTTBrokerConfig{Host: "broker.lan", Port: 8883, TLS: true}, want: "ssl://broker.lan:8883"},
		{name: "ipv6", broker: config.MQTTBrokerConfig{Host: "::1", Port: 1883}, want: "tcp://[::1]:1883"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := brokerURL(tt.broker); got != tt.want {
				t.Errorf("brokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "winston", Password: "secret"}

	opts := newOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "winston-test" {
		t.Errorf("ClientID = %q, want winston-test", opts.ClientID)
	}
	if opts.Username != "winston" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want winston/secret", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Errorf("AutoReconnect = %v, CleanSession = %v, want both true", opts.AutoReconnect, opts.CleanSession)
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without broker.tls")
	}

	if !opts.WillEnabled || !opts.WillRetained || opts.WillTopic != "winston/system/status" {
		t.Errorf("will = %v/%v/%q, want retained on winston/system/status",
			opts.WillEnabled, opts.WillRetained, opts.WillTopic)
	}
	var will Status
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if will.Status != statusOffline || will.Reason != reasonLost || will.ClientID != "winston-test" {
		t.Errorf("will = %+v", will)
	}

	cfg.Broker.TLS = true
	opts = newOptions(cfg)
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion == 0 {
		t.Error("TLS config missing minimum version")
	}
}

func TestStatusPayload(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		reason string
	}{
		{name: "online", state: statusOnline},
		{name: "shutdown", state: statusOffline, reason: reasonShutdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := statusPayload("winston-master", tt.state, tt.reason)
			var got Status
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if got.Status != tt.state || got.Reason != tt.reason || got.ClientID != "winston-master" {
				t.Errorf("status = %+v", got)
			}
			if got.Timestamp.IsZero() {
				t.Error("timestamp missing")
			}
		})
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{qos: 1, routes: make(map[string]route)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "publish empty topic", err: c.Publish("", []byte("x"), 1, false), want: ErrInvalidTopic},
		{name: "publish wildcard topic", err: c.Publish("winston/state/#", []byte("x"), 1, false), want: ErrInvalidTopic},
		{name: "publish bad qos", err: c.Publish("winston/x", []byte("x"), 3, false), want: ErrInvalidQoS},
		{name: "publish oversize", err: c.Publish("winston/x", make([]byte, maxPayloadSize+1), 1, false), want: ErrPublish},
		{name: "publish disconnected", err: c.Publish("winston/x", []byte("x"), 1, false), want: ErrNotConnected},
		{name: "publish json disconnected", err: c.PublishJSON("winston/x", map[string]int{"a": 1}, false), want: ErrNotConnected},
		{name: "publish json unencodable", err: c.PublishJSON("winston/x", make(chan int), false), want: ErrPublish},
		{name: "subscribe empty topic", err: c.Subscribe("", 1, noop), want: ErrInvalidTopic},
		{name: "subscribe bad qos", err: c.Subscribe("winston/#", 3, noop), want: ErrInvalidQoS},
		{name: "subscribe nil handler", err: c.Subscribe("winston/#", 1, nil), want: ErrSubscribe},
		{name: "subscribe disconnected", err: c.Subscribe("winston/#", 1, noop), want: ErrNotConnected},
		{name: "health check", err: c.HealthCheck(context.Background()), want: ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if len(c.routes) != 0 {
		t.Errorf("routes = %v, want none for rejected subscriptions", c.routes)
	}
}

func TestHealthCheck_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Client{}).HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
}

func TestDeliver(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{log: logger}

	var got string
	c.deliver(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, fakeMessage{topic: "winston/command", payload: []byte("io/virtual/house/0")})
	if got != "winston/command=io/virtual/house/0" {
		t.Errorf("handler saw %q", got)
	}

	c.deliver(func(string, []byte) error {
		return errors.New("rejected")
	})(nil, fakeMessage{topic: "winston/command"})

	c.deliver(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "winston/command"})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 || logger.warns[0] != "mqtt handler failed" {
		t.Errorf("warns = %v, want one handler failure", logger.warns)
	}
	if len(logger.errors) != 1 || logger.errors[0] != "mqtt handler panicked" {
		t.Errorf("errors = %v, want one recovered panic", logger.errors)
	}
}
