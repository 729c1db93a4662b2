package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxPayloadSize caps a single message at 1MB, in line with broker defaults.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic. Value events go out retained so a new
// dashboard sees the last known value; commands and results do not.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %s: %d bytes exceeds %d", ErrPublish, topic, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(c.conn.Publish(topic, qos, retained, payload), opTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}

// PublishJSON encodes v and publishes it with the configured QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: encoding: %w", ErrPublish, topic, err)
	}
	return c.Publish(topic, payload, c.qos, retained)
}
