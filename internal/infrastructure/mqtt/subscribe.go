package mqtt

import "fmt"

// Subscribe routes messages matching topic to handler. The route is kept
// and restored on every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrSubscribe, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Record first so a reconnect racing this call still restores it.
	c.mu.Lock()
	c.routes[topic] = route{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := wait(c.conn.Subscribe(topic, qos, c.deliver(handler)), opTimeout); err != nil {
		c.mu.Lock()
		delete(c.routes, topic)
		c.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrSubscribe, topic, err)
	}
	return nil
}
