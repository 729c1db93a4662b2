package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementChannelValues     = "channel_values"
	MeasurementTriggerExecutions = "trigger_executions"
)

// Operations recorded on channel values.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// ChannelValue is one observed value of a channel.
type ChannelValue struct {
	Module  string
	Channel string
	Index   int
	Name    string
	Op      string
	Raw     string
	At      time.Time
}

// ChannelValuePoint converts v into a point. The raw payload is always
// stored; booleans and numbers also get a "numeric" field.
func ChannelValuePoint(v ChannelValue) *write.Point {
	at := v.At
	if at.IsZero() {
		at = time.Now()
	}
	fields := map[string]any{"raw": v.Raw}
	if n, ok := numeric(v.Raw); ok {
		fields["numeric"] = n
	}
	return write.NewPoint(
		MeasurementChannelValues,
		map[string]string{
			"module":  v.Module,
			"channel": v.Channel,
			"index":   strconv.Itoa(v.Index),
			"value":   v.Name,
			"op":      v.Op,
		},
		fields,
		at,
	)
}

// TriggerPoint converts a group trigger execution into a point.
func TriggerPoint(group, status string, duration time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTriggerExecutions,
		map[string]string{
			"group":  group,
			"status": status,
		},
		map[string]any{
			"duration_ms": duration.Milliseconds(),
		},
		at,
	)
}

// numeric maps "true"/"false" to 1/0 and parses plain numbers.
func numeric(raw string) (float64, bool) {
	switch raw {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// WriteChannelValue queues a channel value. It is a no-op after Close.
func (c *Client) WriteChannelValue(v ChannelValue) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(ChannelValuePoint(v))
}

// WriteTriggerExecution queues a trigger execution.
func (c *Client) WriteTriggerExecution(group, status string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(TriggerPoint(group, status, duration, time.Now()))
}
