package events

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/group"
	"github.com/winstonhome/winston/internal/infrastructure/influxdb"
	"github.com/winstonhome/winston/internal/infrastructure/mqtt"
	"github.com/winstonhome/winston/internal/rpc"
)

// DefaultBufferSize is the queue length used when New is given zero.
const DefaultBufferSize = 256

// Sink names reported to the Reporter.
const (
	SinkQueue     = "queue"
	SinkMQTT      = "mqtt"
	SinkInfluxDB  = "influxdb"
	SinkWebSocket = "websocket"
)

// Hub channels that WebSocket clients can subscribe to.
const (
	ChannelRead    = "channel.read"
	ChannelWritten = "channel.written"
	ChannelTrigger = "trigger.fired"
)

// ErrQueueFull is reported when an event is dropped.
var ErrQueueFull = errors.New("events: queue full")

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTPublisher publishes JSON payloads. *mqtt.Client implements it.
type MQTTPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// InfluxWriter queues points. *influxdb.Client implements it.
type InfluxWriter interface {
	WriteChannelValue(v influxdb.ChannelValue)
	WriteTriggerExecution(group, status string, duration time.Duration)
}

// Broadcaster pushes events to WebSocket subscribers. *api.Hub implements it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Reporter counts deliveries. *metrics.Metrics implements it.
type Reporter interface {
	EventPublished(sink string, err error)
}

// ValueEvent is a value read or written through the router.
type ValueEvent struct {
	Module  string    `json:"module"`
	Channel string    `json:"channel"`
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Op      string    `json:"op"`
	Value   string    `json:"value"`
	At      time.Time `json:"at"`
}

type event struct {
	value   *ValueEvent
	trigger *group.Execution
}

// Publisher queues events and delivers them to the configured sinks.
// Sinks must be set before Run is started.
type Publisher struct {
	mqtt     MQTTPublisher
	influx   InfluxWriter
	hub      Broadcaster
	reporter Reporter
	logger   Logger

	queue   chan event
	dropped atomic.Uint64
}

var (
	_ rpc.Observer   = (*Publisher)(nil)
	_ group.Notifier = (*Publisher)(nil)
)

// New creates a Publisher with room for bufferSize pending events.
func New(bufferSize int) *Publisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Publisher{
		logger: noopLogger{},
		queue:  make(chan event, bufferSize),
	}
}

// SetMQTT sets the MQTT sink.
func (p *Publisher) SetMQTT(m MQTTPublisher) { p.mqtt = m }

// SetInflux sets the InfluxDB sink.
func (p *Publisher) SetInflux(w InfluxWriter) { p.influx = w }

// SetHub sets the WebSocket sink.
func (p *Publisher) SetHub(b Broadcaster) { p.hub = b }

// SetReporter sets the delivery counter.
func (p *Publisher) SetReporter(r Reporter) { p.reporter = r }

// SetLogger sets the logger.
func (p *Publisher) SetLogger(l Logger) { p.logger = l }

// Dropped returns how many events were discarded on a full queue.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// ValueRead queues a read event.
func (p *Publisher) ValueRead(_ context.Context, addr rpc.Address, value any) {
	p.enqueue(event{value: newValueEvent(addr, influxdb.OpRead, channel.Render(value))})
}

// ValueWritten queues a write event.
func (p *Publisher) ValueWritten(_ context.Context, addr rpc.Address, payload string) {
	p.enqueue(event{value: newValueEvent(addr, influxdb.OpWrite, payload)})
}

// TriggerFired queues a trigger execution.
func (p *Publisher) TriggerFired(_ context.Context, exec group.Execution) {
	p.enqueue(event{trigger: &exec})
}

func newValueEvent(addr rpc.Address, op, value string) *ValueEvent {
	return &ValueEvent{
		Module:  addr.Module,
		Channel: addr.Channel,
		Index:   addr.Index,
		Name:    addr.Name,
		Op:      op,
		Value:   value,
		At:      time.Now().UTC(),
	}
}

func (p *Publisher) enqueue(ev event) {
	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
		p.report(SinkQueue, ErrQueueFull)
		p.logger.Warn("event dropped, queue full", "capacity", cap(p.queue))
	}
}

// Run delivers queued events until ctx is cancelled, then delivers
// whatever is still queued and returns.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ev)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ev)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ev event) {
	switch {
	case ev.value != nil:
		p.deliverValue(*ev.value)
	case ev.trigger != nil:
		p.deliverTrigger(*ev.trigger)
	}
}

func (p *Publisher) deliverValue(v ValueEvent) {
	if p.mqtt != nil {
		topic := mqtt.Topics{}.ChannelState(v.Module, v.Channel, v.Index)
		err := p.mqtt.PublishJSON(topic, v, true)
		p.report(SinkMQTT, err)
		if err != nil {
			p.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	}
	if p.influx != nil {
		p.influx.WriteChannelValue(influxdb.ChannelValue{
			Module:  v.Module,
			Channel: v.Channel,
			Index:   v.Index,
			Name:    v.Name,
			Op:      v.Op,
			Raw:     v.Value,
			At:      v.At,
		})
		p.report(SinkInfluxDB, nil)
	}
	if p.hub != nil {
		hubChannel := ChannelWritten
		if v.Op == influxdb.OpRead {
			hubChannel = ChannelRead
		}
		p.hub.Broadcast(hubChannel, v)
		p.report(SinkWebSocket, nil)
	}
}

func (p *Publisher) deliverTrigger(exec group.Execution) {
	if p.mqtt != nil {
		topic := mqtt.Topics{}.TriggerFired(exec.Group)
		err := p.mqtt.PublishJSON(topic, exec, false)
		p.report(SinkMQTT, err)
		if err != nil {
			p.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	}
	if p.influx != nil {
		p.influx.WriteTriggerExecution(exec.Group, string(exec.Status),
			time.Duration(exec.DurationMS)*time.Millisecond)
		p.report(SinkInfluxDB, nil)
	}
	if p.hub != nil {
		p.hub.Broadcast(ChannelTrigger, exec)
		p.report(SinkWebSocket, nil)
	}
}

func (p *Publisher) report(sink string, err error) {
	if p.reporter != nil {
		p.reporter.EventPublished(sink, err)
	}
}
